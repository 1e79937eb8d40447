// Package main hosts the harvester service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, job scheduling
//     and result endpoints. A crawl request inserts a pending job row and
//     publishes a compact queue message; the response is 202 Accepted with
//     the job record, before any crawling has happened.
//   - Queue: jobs travel through a broker (GCP Pub/Sub in production, an
//     in-memory broker for development) with at-least-once delivery. The
//     worker acknowledges a delivery only after the job reached a terminal
//     status; duplicate deliveries are detected through guarded status
//     transitions and dropped.
//   - Worker: internal/worker consumes deliveries with a bounded number of
//     unacknowledged messages, claims each job with a pending-to-running
//     transition, dispatches to the crawler registry, persists results and
//     records the terminal status. Optionally exports a JSON snapshot of the
//     results to blob storage (GCS, local disk, or memory).
//   - Crawlers: the hockey source is a server-rendered paginated table
//     fetched with Colly; the oscar source is rendered with headless Chrome
//     via chromedp and parsed with goquery. Both are bounded by timeouts and
//     the render path is limited by a tab semaphore and a click rate limit.
//   - Persistence: jobs and scraped records live in PostgreSQL through pgx
//     (or in-memory stores for development). Result rows are append-only and
//     keyed by the job that collected them.
//   - Configuration & plumbing: Viper populates config from env/files with
//     the HARVESTER_ prefix; zap provides structured logging; Prometheus
//     metrics are exported on /metrics by both processes.
//
// Run locally:
//
//	go run ./cmd/harvester serve --config config.yaml
//
// The serve command runs both halves in one process against the in-memory
// providers. In production the api and worker commands run as separate
// processes with db.driver=postgres and queue.provider=pubsub.
package main
