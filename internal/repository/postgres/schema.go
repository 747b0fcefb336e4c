package postgres

// Schema is idempotent. withdrawal_key is nullable until the member becomes eligible.
const Schema = `
CREATE TABLE IF NOT EXISTS invite_accounts (
	member_id      BIGINT PRIMARY KEY,
	display_name   TEXT NOT NULL DEFAULT '',
	invite_count   INTEGER NOT NULL DEFAULT 0 CHECK (invite_count >= 0),
	withdrawal_key INTEGER CHECK (withdrawal_key BETWEEN 100000 AND 999999),
	created_on     TIMESTAMPTZ NOT NULL,
	updated_on     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_joins (
	chat_id      BIGINT NOT NULL,
	joinee_id    BIGINT NOT NULL,
	inviter_id   BIGINT NOT NULL,
	processed_on TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chat_id, joinee_id)
);
`
