package transaction

// SendLatest delivers v on ch, first discarding a value the reader has not
// picked up yet. ch must have a buffer of one and a single sender, so the
// send never blocks.
func SendLatest[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}

	ch <- v
}

// Clone copies a snapshot so the caller can hand it out without sharing the
// backing array.
func Clone(txs []Transaction) []Transaction {
	if txs == nil {
		return []Transaction{}
	}

	out := make([]Transaction, len(txs))
	copy(out, txs)

	return out
}
