// Package tokenizer defines the text/token boundary of the generation
// client. Actual vocabularies and merge tables live in the serving
// backend; this package only fixes the contract the decode loop needs.
package tokenizer

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	// Encode tokenizes text and returns parallel id and attention-mask
	// slices of equal length. Mask entries are 1 for real tokens and 0
	// for padding.
	Encode(text string) (ids, mask []int64, err error)

	// Decode converts ids back to text. When skipSpecial is true,
	// control tokens such as <eom> are omitted from the output.
	Decode(ids []int64, skipSpecial bool) (string, error)

	// TokenID resolves a named special token (for example "<eom>") to
	// its id.
	TokenID(name string) (int64, error)
}

// Special token names used by the MOSS conversation format.
const (
	EndOfHuman   = "<eoh>"
	EndOfMessage = "<eom>"
	EndOfThought = "<eot>"
	EndOfCommand = "<eoc>"
	EndOfResult  = "<eor>"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
