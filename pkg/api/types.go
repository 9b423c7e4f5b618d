package api

const (
	DefaultDomain = "https://form.io"

	DefaultClientURL          = "https://codeload.github.com/formio/formio-app-formio/zip/master"
	DefaultClientArchive      = "client.zip"
	DefaultClientExtractedDir = "formio-app-formio-master"
	DefaultClientTargetDir    = "client"

	// App bundle defaults are rendered against {"app": "<owner>/<repo>"}.
	DefaultAppURL          = "https://codeload.github.com/{{ .app }}/zip/master"
	DefaultAppArchive      = "app.zip"
	DefaultAppExtractedDir = `{{ .app | splitList "/" | last }}-master`
	DefaultAppTargetDir    = "app"

	BundleClient = "client"
	BundleApp    = "app"

	TemplateSourceDefault = ""
	TemplateSourceClient  = "client"
	TemplateSourceApp     = "app"

	ManifestFilename        = "package.json"
	ProjectTemplateFilename = "project.json"

	githubPrefix = "https://github.com/"
)

// Config is the installer configuration file format.
type Config struct {
	Domain   string            `yaml:"domain"`
	Context  map[string]string `yaml:"context"`
	App      string            `yaml:"app"`
	Client   BundleSpec        `yaml:"client"`
	AppSpec  BundleSpec        `yaml:"appBundle"`
	Template string            `yaml:"template"`
	Root     RootAccount       `yaml:"root"`
	Steps    StepFlags         `yaml:"steps"`

	// Set by Resolve, not from YAML.
	WorkDir string `yaml:"-"`
}

// BundleSpec identifies one downloadable and extractable unit.
type BundleSpec struct {
	Name         string `yaml:"-"`
	SourceURL    string `yaml:"url"`
	ArchivePath  string `yaml:"archive"`
	ExtractedDir string `yaml:"extractedDir"` // may be a doublestar pattern
	TargetDir    string `yaml:"targetDir"`
}

// RootAccount holds the credentials of the initial administrative account.
type RootAccount struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// StepFlags select which optional steps run.
type StepFlags struct {
	Download bool `yaml:"download"`
	Extract  bool `yaml:"extract"`
	Import   bool `yaml:"import"`
	User     bool `yaml:"user"`
}

// DefaultConfig returns a configuration with every optional step enabled.
func DefaultConfig() *Config {
	return &Config{
		Domain: DefaultDomain,
		Steps: StepFlags{
			Download: true,
			Extract:  true,
			Import:   true,
			User:     true,
		},
	}
}
