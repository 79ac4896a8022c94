package binding

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"automergekv/automerge"
	"automergekv/docops"
)

// ModuleID and SnapshotVersion tag every snapshot this binding produces,
// per spec.md §4.4 ("tagged with a module identifier and version").
// SnapshotVersion bumps whenever envelope's own shape changes in a way
// that is not forward-compatible; it is independent of automerge's own
// save format version, which automerge.Load already round-trips.
const (
	ModuleID        = "automergekv"
	SnapshotVersion = 1
)

// envelope wraps a document's automerge.Save() bytes with the module
// identity decodeSnapshot verifies before trusting Content, grounded on
// crdtstorage/document_serializer.go's DocumentData wrapper (which
// carries ID/Version/Metadata alongside the raw content JSON).
type envelope struct {
	Module  string          `json:"module"`
	Version int             `json:"version"`
	Content json.RawMessage `json:"content"`
}

func encodeSnapshot(doc *automerge.Document) ([]byte, error) {
	content, err := doc.Save()
	if err != nil {
		return nil, err
	}
	env := envelope{Module: ModuleID, Version: SnapshotVersion, Content: content}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "binding: failed to encode snapshot")
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*automerge.Document, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &docops.BadJSONError{Cause: errors.Wrap(err, "binding: failed to decode snapshot envelope")}
	}
	if env.Module != ModuleID {
		return nil, &docops.BadJSONError{Cause: fmt.Errorf("binding: snapshot module %q does not match %q", env.Module, ModuleID)}
	}
	if env.Version != SnapshotVersion {
		return nil, &docops.BadJSONError{Cause: fmt.Errorf("binding: unsupported snapshot version %d", env.Version)}
	}
	doc, err := automerge.Load(env.Content)
	if err != nil {
		return nil, &docops.BadJSONError{Cause: err}
	}
	return doc, nil
}
