package event

// Host events understood by the bridge.
const (
	PopupClosed           Name = "popup_closed"
	ThemeChanged          Name = "theme_changed"
	ViewportChanged       Name = "viewport_changed"
	VisibilityChanged     Name = "visibility_changed"
	CustomMethodInvoked   Name = "custom_method_invoked"
	SecureStorageKeySaved Name = "secure_storage_key_saved"
	SecureStorageKeyRecv  Name = "secure_storage_key_received"
	SecureStorageRestored Name = "secure_storage_key_restored"
	SecureStorageCleared  Name = "secure_storage_cleared"
	SecureStorageFailed   Name = "secure_storage_failed"
)

// PopupClosedData is the payload of popup_closed.
// ButtonID is empty when the popup was dismissed without pressing a button.
type PopupClosedData struct {
	ButtonID string `json:"button_id,omitempty"`
}

// ThemeChangedData is the payload of theme_changed.
type ThemeChangedData struct {
	ThemeParams map[string]string `json:"theme_params"`
}

// VisibilityChangedData is the payload of visibility_changed.
type VisibilityChangedData struct {
	IsVisible bool `json:"is_visible"`
}

// CustomMethodInvokedData is the payload of custom_method_invoked.
type CustomMethodInvokedData struct {
	ReqID  string `json:"req_id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SecureStorageKeySavedData is the payload of secure_storage_key_saved.
type SecureStorageKeySavedData struct {
	ReqID string `json:"req_id"`
}

// SecureStorageKeyReceivedData is the payload of secure_storage_key_received.
type SecureStorageKeyReceivedData struct {
	ReqID      string  `json:"req_id"`
	Value      *string `json:"value"`
	CanRestore bool    `json:"can_restore,omitempty"`
}

// SecureStorageKeyRestoredData is the payload of secure_storage_key_restored.
type SecureStorageKeyRestoredData struct {
	ReqID string  `json:"req_id"`
	Value *string `json:"value"`
}

// SecureStorageClearedData is the payload of secure_storage_cleared.
type SecureStorageClearedData struct {
	ReqID string `json:"req_id"`
}

// SecureStorageFailedData is the payload of secure_storage_failed.
type SecureStorageFailedData struct {
	ReqID string `json:"req_id"`
	Error string `json:"error,omitempty"`
}

// ViewportChangedData is the payload of viewport_changed.
type ViewportChangedData struct {
	Height        int  `json:"height"`
	Width         int  `json:"width"`
	IsExpanded    bool `json:"is_expanded"`
	IsStateStable bool `json:"is_state_stable"`
}
