// Package types provides the data types shared by the bridge packages.
package types

import "encoding/json"

// Message is the bridge wire format. Commands sent to the host and events
// received from it share the same envelope.
type Message struct {
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData,omitempty"`
}

// Host methods (commands) understood by the bridge.
const (
	MethodOpenPopup          = "web_app_open_popup"
	MethodRequestTheme       = "web_app_request_theme"
	MethodRequestViewport    = "web_app_request_viewport"
	MethodInvokeCustomMethod = "web_app_invoke_custom_method"
	MethodSecureStorageSave  = "web_app_secure_storage_save_key"
	MethodSecureStorageGet   = "web_app_secure_storage_get_key"
	MethodSecureStorageRest  = "web_app_secure_storage_restore_key"
	MethodSecureStorageClear = "web_app_secure_storage_clear"
)

// PopupButton is a button of a native popup.
type PopupButton struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "default" | "ok" | "close" | "cancel" | "destructive"
	Text string `json:"text,omitempty"`
}

// OpenPopupParams are the params of web_app_open_popup.
type OpenPopupParams struct {
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Buttons []PopupButton `json:"buttons"`
}

// InvokeCustomMethodParams are the params of web_app_invoke_custom_method.
type InvokeCustomMethodParams struct {
	ReqID  string         `json:"req_id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// SecureStorageParams are the params shared by the secure storage methods.
// Value is only meaningful for save_key, where nil deletes the key.
type SecureStorageParams struct {
	ReqID string  `json:"req_id"`
	Key   string  `json:"key,omitempty"`
	Value *string `json:"value,omitempty"`
}

// SecureStorageDeleteParams are the save_key params that delete a key. Value is
// always encoded, so the host receives an explicit null.
type SecureStorageDeleteParams struct {
	ReqID string  `json:"req_id"`
	Key   string  `json:"key"`
	Value *string `json:"value"`
}
