package builtin

import "github.com/sentra-lang/gowam/internal/wam"

// RegisterAll wires every domain built-in group into preds. Callers that
// only need a subset (e.g. a sandboxed embedding that shouldn't dial
// peers or open SQL connections) call the individual Register* functions
// directly instead.
func RegisterAll(preds *wam.PredicateTable) {
	RegisterCore(preds)
	RegisterCrypto(preds)
	RegisterNet(preds)
	RegisterDB(preds)
	RegisterMailbox(preds)
}
