// Package mailbox provides an unbounded multi-producer, single-consumer queue.
//
// A mailbox has one Receiver and any number of Senders. Senders never block:
// messages are appended to an unbounded queue. The Receiver drains with
// TryRecv, which also never blocks:
//
//	tx, rx := mailbox.New[int]()
//	tx.Send(1)
//
//	for {
//	    v, err := rx.TryRecv()
//	    if errors.Is(err, mailbox.ErrEmpty) {
//	        break
//	    }
//	    ...
//	}
//
// # Disconnection
//
// Every Sender obtained from New or Clone must be closed once. When the last
// Sender is closed and the queue is empty, TryRecv reports ErrDisconnected.
// When the Receiver is closed, Send reports ErrDisconnected and the queued
// messages are discarded.
package mailbox
