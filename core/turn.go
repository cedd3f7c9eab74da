package core

// Metadata keys used in the vector store. These are part of the external
// storage contract: persisted records written by older deployments carry
// exactly these keys.
const (
	MetaUserID       = "user_id"
	MetaTimestamp    = "timestamp"
	MetaHumanMessage = "human_message"
	MetaAIMessage    = "ai_message"
)

// TurnMetadata is the typed metadata record for one persisted turn.
// Timestamp is an RFC 3339 string; missing fields default to "".
type TurnMetadata struct {
	UserID       string
	Timestamp    string
	HumanMessage string
	AIMessage    string
}

// ToMap converts the metadata to the flat key/value form the store expects.
func (m TurnMetadata) ToMap() map[string]string {
	return map[string]string{
		MetaUserID:       m.UserID,
		MetaTimestamp:    m.Timestamp,
		MetaHumanMessage: m.HumanMessage,
		MetaAIMessage:    m.AIMessage,
	}
}

// TurnMetadataFromMap reads a metadata map back into the typed record.
// Missing keys yield empty strings, never an error: persisted records
// written by buggy or older clients must stay readable.
func TurnMetadataFromMap(meta map[string]string) TurnMetadata {
	return TurnMetadata{
		UserID:       meta[MetaUserID],
		Timestamp:    meta[MetaTimestamp],
		HumanMessage: meta[MetaHumanMessage],
		AIMessage:    meta[MetaAIMessage],
	}
}

// Messages expands the record into zero, one, or two history messages
// depending on which halves of the exchange are present.
func (m TurnMetadata) Messages() []Message {
	var msgs []Message
	if m.HumanMessage != "" {
		msgs = append(msgs, NewHumanMessage(m.HumanMessage))
	}
	if m.AIMessage != "" {
		msgs = append(msgs, NewAIMessage(m.AIMessage))
	}
	return msgs
}
