package whatsapp

// ======================================================================================
// Inbound (webhook) types
// ======================================================================================

// Envelope is the webhook payload posted by the WhatsApp Cloud API
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value *Value `json:"value"`
}

// Value holds either delivery statuses or contacts plus messages
type Value struct {
	MessagingProduct string           `json:"messaging_product"`
	Contacts         []Contact        `json:"contacts,omitempty"`
	Messages         []InboundMessage `json:"messages,omitempty"`
	Statuses         []Status         `json:"statuses,omitempty"`
}

type Contact struct {
	WAID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Status is a delivery receipt (sent, delivered, read, failed)
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
	Timestamp   string `json:"timestamp"`
}

// InboundMessage is one user message. Only the field matching Type is populated.
type InboundMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *InboundText        `json:"text,omitempty"`
	Interactive *InboundInteractive `json:"interactive,omitempty"`
}

type InboundText struct {
	Body string `json:"body"`
}

type InboundInteractive struct {
	Type        string `json:"type"`
	ListReply   *Reply `json:"list_reply,omitempty"`
	ButtonReply *Reply `json:"button_reply,omitempty"`
}

// Reply is the row (or button) the user picked
type Reply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

const (
	MessageTypeText        = "text"
	MessageTypeInteractive = "interactive"

	InteractiveListReply   = "list_reply"
	InteractiveButtonReply = "button_reply"
	InteractiveList        = "list"
	InteractiveFlow        = "flow"
)

// ======================================================================================
// Outbound (send API) types
// ======================================================================================

// OutboundMessage is the POST body of /{version}/{phone-id}/messages
type OutboundMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *Text        `json:"text,omitempty"`
	Interactive      *Interactive `json:"interactive,omitempty"`
}

type Text struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// Interactive carries either a list or a flow; Type selects which Action fields apply.
type Interactive struct {
	Type   string    `json:"type"`
	Header *Header   `json:"header,omitempty"`
	Body   *BodyText `json:"body,omitempty"`
	Footer *BodyText `json:"footer,omitempty"`
	Action Action    `json:"action"`
}

type Header struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type BodyText struct {
	Text string `json:"text"`
}

type Action struct {
	// list
	Button   string    `json:"button,omitempty"`
	Sections []Section `json:"sections,omitempty"`

	// flow
	Name       string          `json:"name,omitempty"`
	Parameters *FlowParameters `json:"parameters,omitempty"`
}

type Section struct {
	Title string `json:"title,omitempty"`
	Rows  []Row  `json:"rows"`
}

type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type FlowParameters struct {
	FlowMessageVersion string             `json:"flow_message_version"`
	FlowToken          string             `json:"flow_token"`
	FlowID             string             `json:"flow_id"`
	FlowCTA            string             `json:"flow_cta"`
	FlowAction         string             `json:"flow_action"`
	FlowActionPayload  *FlowActionPayload `json:"flow_action_payload,omitempty"`
}

type FlowActionPayload struct {
	Screen string         `json:"screen"`
	Data   map[string]any `json:"data,omitempty"`
}

const (
	MessagingProduct    = "whatsapp"
	RecipientIndividual = "individual"
)
