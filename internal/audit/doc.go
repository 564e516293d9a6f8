// Package audit owns the decision log: the append-only record of every
// terminal pipeline outcome.
//
// The Recorder writes one row per decision as sends settle. The Archiver
// ships settled rows to S3 (raw JSON, keyed by day and decision ID) and
// DynamoDB (per-tenant timeline with a retention TTL), then stamps them
// archived. The Warehouse exports daily outcome rollups to Snowflake for
// deliverability reporting.
package audit
