package fairshare

type (
	// PubSubMessage is the payload of a Pub/Sub event.
	PubSubMessage struct {
		Attributes PubSubAttributes `json:"attributes"`
		Data       []byte           `json:"data"`
	}

	// PubSubAttributes are attributes from the Pub/Sub event. Secret Manager
	// sets both on rotation notifications.
	PubSubAttributes struct {
		EventType string `json:"eventType"`
		SecretID  string `json:"secretId"`
	}
)

const eventTypeSecretRotate = "SECRET_ROTATE"
