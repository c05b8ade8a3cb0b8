// Package processing runs invoice extraction in the background.
//
// A Pool owns a fixed number of workers fed by a bounded queue. Submit never
// blocks: a full queue yields ErrQueueFull so the HTTP layer can answer 503
// instead of piling up goroutines. Every task runs under its own
// cancellable context; Cancel aborts one invoice and Stop aborts them all.
//
// Processor is the task body. It archives the PDF when an archiver is
// configured, runs the extraction pipeline, and records exactly one outcome
// on the invoice. Outcomes are written with a context detached from the
// task's cancellation. Tasks interrupted by shutdown record nothing and are
// picked up again by Resubmit on the next start.
//
// Dispatcher hides where tasks go: PoolDispatcher submits in-process, while
// AMQPPublisher sends them to a durable RabbitMQ queue that AMQPConsumer
// drains into the local pool.
package processing
