package steps

import (
	"fmt"

	"github.com/systemstart/formio-install/pkg/api"
)

const (
	StepDownloadApp    = "download-app"
	StepExtractApp     = "extract-app"
	StepDownloadClient = "download-client"
	StepExtractClient  = "extract-client"
	StepSelectTemplate = "select-template"
	StepImportTemplate = "import-template"
	StepCreateRootUser = "create-root-user"
)

// Order is the fixed installation order.
var Order = []string{
	StepDownloadApp,
	StepExtractApp,
	StepDownloadClient,
	StepExtractClient,
	StepSelectTemplate,
	StepImportTemplate,
	StepCreateRootUser,
}

// NewStep creates a Step implementation from its name.
func NewStep(name string) (Step, error) {
	switch name {
	case StepDownloadApp:
		return NewDownloadStep(name, api.BundleApp, appConfigured), nil
	case StepExtractApp:
		return NewExtractStep(name, api.BundleApp, appConfigured), nil
	case StepDownloadClient:
		return NewDownloadStep(name, api.BundleClient, downloadEnabled), nil
	case StepExtractClient:
		return NewExtractStep(name, api.BundleClient, extractEnabled), nil
	case StepSelectTemplate:
		return NewSelectTemplateStep(name), nil
	case StepImportTemplate:
		return NewImportStep(name), nil
	case StepCreateRootUser:
		return NewRootUserStep(name), nil
	default:
		return nil, fmt.Errorf("unknown step: %s", name)
	}
}

// Pipeline returns the installation steps in Order.
func Pipeline() []Step {
	out := make([]Step, 0, len(Order))
	for _, name := range Order {
		s, err := NewStep(name)
		if err != nil {
			panic(err)
		}
		out = append(out, s)
	}
	return out
}
