package httpx

import "github.com/target/folio/internal/domain/route"

// Template paths used for loading templates in tests and production.
const (
	TemplatePathFromRoot = "frontend/templates"       // From project root
	TemplatePathFromTest = "../../frontend/templates" // From internal/http test files
)

// FormMode represents the mode of an edit form.
type FormMode string

const (
	FormModeEdit   FormMode = "edit"
	FormModeCreate FormMode = "create"
)

// Form operations submitted with the "_op" field of an edit form.
const (
	formOpSave      = "save"
	formOpDelete    = "delete"
	formOpAddRow    = "add-row"
	formOpRemoveRow = "remove-row"
	formOpRotateKey = "rotate-api-key"
)

// formOpField names the submit button that selects a form operation.
const formOpField = "_op"

// contentTemplates maps each admin view to the template that renders its main area.
//
//nolint:gochecknoglobals // static read-only lookup
var contentTemplates = map[route.View]string{
	route.ViewLoading:          "loading-content",
	route.ViewCreateFirstUser:  "first-user-content",
	route.ViewLogin:            "login-content",
	route.ViewLogout:           "logout-content",
	route.ViewLogoutInactivity: "logout-content",
	route.ViewForgotPassword:   "forgot-content",
	route.ViewResetPassword:    "reset-content",
	route.ViewVerify:           "verify-content",
	route.ViewDashboard:        "dashboard-content",
	route.ViewAccount:          "edit-content",
	route.ViewList:             "list-content",
	route.ViewCreate:           "edit-content",
	route.ViewEdit:             "edit-content",
	route.ViewVersions:         "versions-content",
	route.ViewVersion:          "version-content",
	route.ViewGlobal:           "edit-content",
	route.ViewGlobalVersions:   "versions-content",
	route.ViewGlobalVersion:    "version-content",
	route.ViewUnauthorized:     "unauthorized-content",
	route.ViewNotFound:         "not-found-content",
	route.ViewCustom:           "custom-content",
}

// ContentTemplateFor returns the content template for the given view.
// Falls back to not-found-content for unknown views.
func ContentTemplateFor(view string) string {
	if name, ok := contentTemplates[route.View(view)]; ok {
		return name
	}
	return "not-found-content"
}
