package domain

import "encoding/json"

// NotificationTypeEmail is the only notification transport handed to the alert backend.
const NotificationTypeEmail = "email"

// TransportConfig holds static email notifier settings loaded once at startup.
// Params: SMTP endpoint, credentials, sender, and TLS options.
// Returns: immutable transport settings shared by all triggers.
type TransportConfig struct {
	Host                string
	Port                string
	Username            string
	Password            string
	From                string
	StartTLSEnabled     bool
	SSLTrustAll         bool
	SSLKeyStore         string
	SSLKeyStorePassword string
}

// transportBlob is backend wire layout; field order and names are part of the contract.
type transportBlob struct {
	From                string  `json:"from"`
	Host                string  `json:"host"`
	Port                string  `json:"port"`
	Username            string  `json:"username"`
	Password            string  `json:"password"`
	StartTLSEnabled     bool    `json:"startTLSEnabled"`
	SSLTrustAll         bool    `json:"sslTrustAll"`
	SSLKeyStore         *string `json:"sslKeyStore"`
	SSLKeyStorePassword *string `json:"sslKeyStorePassword"`
}

// JSON renders transport settings into backend configuration blob.
// Params: none.
// Returns: compact JSON object; unset keystore fields are rendered as null.
func (c TransportConfig) JSON() string {
	blob := transportBlob{
		From:                c.From,
		Host:                c.Host,
		Port:                c.Port,
		Username:            c.Username,
		Password:            c.Password,
		StartTLSEnabled:     c.StartTLSEnabled,
		SSLTrustAll:         c.SSLTrustAll,
		SSLKeyStore:         optionalString(c.SSLKeyStore),
		SSLKeyStorePassword: optionalString(c.SSLKeyStorePassword),
	}
	body, err := json.Marshal(blob)
	if err != nil {
		// unreachable: blob holds only strings and bools
		return "{}"
	}
	return string(body)
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// Notification is one notification target attached to a trigger.
// Params: transport type, destination address, and serialized transport configuration.
// Returns: backend notification descriptor.
type Notification struct {
	Type          string `json:"type"`
	Destination   string `json:"destination"`
	Configuration string `json:"jsonConfiguration"`
}

// TriggerDefinition is one alert trigger registered with the alert backend.
// Params: deterministic id, name, details URL, condition expression, and notifications.
// Returns: activation payload for the alert sink.
type TriggerDefinition struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ViewDetailsURL string         `json:"viewDetailsUrl"`
	Condition      string         `json:"condition"`
	Notifications  []Notification `json:"notifications"`
}

// CancelDirective asks the alert backend to drop a previously registered trigger.
// Params: trigger id and cancel flag.
// Returns: cancellation payload for the alert sink.
type CancelDirective struct {
	ID     string `json:"id"`
	Cancel bool   `json:"cancel"`
}

// NewCancelDirective builds cancel payload for trigger id.
// Params: trigger id.
// Returns: directive with cancel flag set.
func NewCancelDirective(triggerID string) CancelDirective {
	return CancelDirective{ID: triggerID, Cancel: true}
}
