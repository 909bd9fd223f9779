// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package worker moves updates from a transport into the conversation engine.

Processor is shared by both modes. The webhook handler calls Process with the
request body and answers 500 when it returns an error, so the upstream
redelivers. Poller long-polls getUpdates instead:

	p := &worker.Poller{Source: client, Processor: proc, Workers: cfg.Workers, Timeout: 30}
	err := p.Run(ctx)

Within a batch, each sender's events run in order on one goroutine and at most
Workers senders run at once. The offset only advances after the whole batch
is handled.
*/
package worker
