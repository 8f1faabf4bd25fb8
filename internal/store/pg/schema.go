package pg

// Schema is applied by `scoring migrate`. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS strategies (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT        NOT NULL,
	description TEXT        NOT NULL DEFAULT '',
	category    TEXT        NOT NULL DEFAULT '',
	created_by  TEXT        NOT NULL,
	is_public   BOOLEAN     NOT NULL DEFAULT FALSE,
	archived    BOOLEAN     NOT NULL DEFAULT FALSE,
	version     INT         NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS strategy_directives (
	strategy_id  BIGINT           NOT NULL REFERENCES strategies(id),
	directive_id TEXT             NOT NULL,
	weight       DOUBLE PRECISION NOT NULL,
	config       JSONB,
	sort_order   INT              NOT NULL DEFAULT 0,
	active       BOOLEAN          NOT NULL DEFAULT TRUE,
	PRIMARY KEY (strategy_id, directive_id)
);

CREATE TABLE IF NOT EXISTS strategy_versions (
	id          BIGSERIAL PRIMARY KEY,
	strategy_id BIGINT      NOT NULL REFERENCES strategies(id),
	version     INT         NOT NULL,
	change_type TEXT        NOT NULL,
	snapshot    JSONB       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (strategy_id, version)
);

CREATE TABLE IF NOT EXISTS strategy_test_results (
	id          BIGSERIAL PRIMARY KEY,
	strategy_id BIGINT           NOT NULL REFERENCES strategies(id),
	run_id      TEXT             NOT NULL DEFAULT '',
	symbol      TEXT             NOT NULL,
	score       DOUBLE PRECISION NOT NULL,
	success     BOOLEAN          NOT NULL,
	created_at  TIMESTAMPTZ      NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS strategy_test_results_strategy_idx ON strategy_test_results (strategy_id, id DESC);

CREATE TABLE IF NOT EXISTS scoring_runs (
	id                TEXT PRIMARY KEY,
	start_time        TIMESTAMPTZ NOT NULL,
	end_time          TIMESTAMPTZ,
	status            TEXT        NOT NULL,
	run_type          TEXT        NOT NULL,
	symbols_processed INT         NOT NULL DEFAULT 0,
	symbols_failed    INT         NOT NULL DEFAULT 0,
	api_calls         INT         NOT NULL DEFAULT 0,
	scores_generated  INT         NOT NULL DEFAULT 0,
	trade_signals     INT         NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS symbols (
	symbol            TEXT PRIMARY KEY,
	added_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_attempted_at TIMESTAMPTZ
);
ALTER TABLE symbols ADD COLUMN IF NOT EXISTS last_attempted_at TIMESTAMPTZ;

CREATE TABLE IF NOT EXISTS score_history (
	id             BIGSERIAL PRIMARY KEY,
	symbol         TEXT        NOT NULL,
	value          INT         NOT NULL,
	previous_value INT         NOT NULL DEFAULT 0,
	has_previous   BOOLEAN     NOT NULL DEFAULT FALSE,
	algorithm      TEXT        NOT NULL,
	components     JSONB       NOT NULL,
	run_id         TEXT        NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS score_history_symbol_idx ON score_history (symbol, id DESC);

CREATE TABLE IF NOT EXISTS job_queue (
	seq         BIGSERIAL PRIMARY KEY,
	id          TEXT        NOT NULL UNIQUE,
	action      TEXT        NOT NULL,
	payload     JSONB       NOT NULL,
	retry_count INT         NOT NULL DEFAULT 0,
	not_before  TIMESTAMPTZ NOT NULL,
	enqueued_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
