package infra

// Schema is the correlation store DDL applied to a fresh test database.
const Schema = `
CREATE TABLE IF NOT EXISTS package_records (
    package_id      text PRIMARY KEY,
    designation_id  bigint,
    signer_email    text NOT NULL DEFAULT '',
    correlation_tag text NOT NULL DEFAULT '',
    created_at      timestamptz NOT NULL DEFAULT now(),
    canceled        boolean NOT NULL DEFAULT false
);

CREATE INDEX IF NOT EXISTS idx_package_records_designation
    ON package_records (designation_id, created_at DESC);
`
