package fraud

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EvidenceKind tags the closed set of evidence variants.
type EvidenceKind string

const (
	KindScreenshot  EvidenceKind = "screenshot"
	KindChatLog     EvidenceKind = "chat_log"
	KindTransaction EvidenceKind = "transaction"
	KindDocument    EvidenceKind = "document"
)

// Evidence is one piece of supporting material attached to a case. The
// interface is sealed: only the variants in this package implement it.
type Evidence interface {
	Kind() EvidenceKind
	evidence()
}

// Screenshot is an image captured by the reporter.
type Screenshot struct {
	URL     string `json:"url" validate:"required,url"`
	Caption string `json:"caption,omitempty" validate:"max=280"`
}

// ChatLog quotes a buyer/seller conversation.
type ChatLog struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Excerpt        string `json:"excerpt" validate:"required,max=2000"`
}

// Transaction references a payment involved in the case.
type Transaction struct {
	TransactionID string  `json:"transaction_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"gte=0"`
}

// Document is an uploaded file such as an invoice or ID card.
type Document struct {
	URL  string `json:"url" validate:"required,url"`
	Name string `json:"name" validate:"required"`
}

func (Screenshot) Kind() EvidenceKind { return KindScreenshot }
func (ChatLog) Kind() EvidenceKind { return KindChatLog }
func (Transaction) Kind() EvidenceKind { return KindTransaction }
func (Document) Kind() EvidenceKind { return KindDocument }

func (Screenshot) evidence() {}
func (ChatLog) evidence() {}
func (Transaction) evidence() {}
func (Document) evidence() {}

// Describe renders a one-line summary of an evidence item.
func Describe(e Evidence) string {
	switch v := e.(type) {
	case Screenshot:
		if v.Caption != "" {
			return "Tangkapan layar: " + v.Caption
		}
		return "Tangkapan layar"
	case ChatLog:
		return "Percakapan " + v.ConversationID
	case Transaction:
		return "Transaksi " + v.TransactionID
	case Document:
		return "Dokumen " + v.Name
	default:
		panic(fmt.Sprintf("fraud: unhandled evidence %T", e))
	}
}

// DecodeEvidence decodes one tagged evidence object.
func DecodeEvidence(data []byte) (Evidence, error) {
	var head struct {
		Type EvidenceKind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	var (
		target Evidence
		err    error
	)
	switch head.Type {
	case KindScreenshot:
		var v Screenshot
		err = json.Unmarshal(data, &v)
		target = v
	case KindChatLog:
		var v ChatLog
		err = json.Unmarshal(data, &v)
		target = v
	case KindTransaction:
		var v Transaction
		err = json.Unmarshal(data, &v)
		target = v
	case KindDocument:
		var v Document
		err = json.Unmarshal(data, &v)
		target = v
	default:
		return nil, fmt.Errorf("fraud: unknown evidence type %q", head.Type)
	}
	if err != nil {
		return nil, err
	}
	return target, nil
}

// EncodeEvidence encodes an evidence item with its type tag.
func EncodeEvidence(e Evidence) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["type"], _ = json.Marshal(e.Kind())
	return json.Marshal(fields)
}

// EvidenceList is the JSON form of a case's evidence.
type EvidenceList []Evidence

// MarshalJSON encodes every item with its type tag.
func (l EvidenceList) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(l))
	for _, e := range l {
		data, err := EncodeEvidence(e)
		if err != nil {
			return nil, err
		}
		items = append(items, data)
	}
	return json.Marshal(items)
}

// UnmarshalJSON rejects unknown evidence types.
func (l *EvidenceList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(EvidenceList, 0, len(raw))
	for i, item := range raw {
		e, err := DecodeEvidence(item)
		if err != nil {
			return fmt.Errorf("evidence[%d]: %w", i, err)
		}
		out = append(out, e)
	}
	*l = out
	return nil
}

// Summary lists the evidence kinds for export.
func (l EvidenceList) Summary() string {
	parts := make([]string, 0, len(l))
	for _, e := range l {
		parts = append(parts, Describe(e))
	}
	return strings.Join(parts, "; ")
}
