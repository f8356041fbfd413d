package triplestore

const schemaVersion = "1"

// schemaDDL creates the triples table, its mandatory indexes (§4.1),
// the local chunk cache, and the schema_meta key-value table. obj_type
// stores the types.Tag ordinal; per-tag value columns are sparse (NULL
// when not applicable to that row's obj_type), mirroring GraphCol's
// sparse column layout.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS triples (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	subject       TEXT NOT NULL,
	predicate     TEXT NOT NULL,
	obj_type      INTEGER NOT NULL,
	obj_ref       TEXT,
	obj_string    TEXT,
	obj_int64     INTEGER,
	obj_float64   REAL,
	obj_bool      INTEGER,
	obj_timestamp INTEGER,
	obj_lat       REAL,
	obj_lng       REAL,
	obj_binary    BLOB,
	obj_lang      TEXT,
	obj_unit      TEXT,
	timestamp     INTEGER NOT NULL,
	tx_id         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_spo ON triples (subject, predicate, obj_type);
CREATE INDEX IF NOT EXISTS idx_pos ON triples (predicate, obj_type, subject);
CREATE INDEX IF NOT EXISTS idx_osp ON triples (obj_ref, subject, predicate) WHERE obj_type = 7;
CREATE INDEX IF NOT EXISTS idx_time ON triples (timestamp);
CREATE INDEX IF NOT EXISTS idx_tx ON triples (tx_id);

CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	namespace  TEXT NOT NULL,
	data       BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_namespace ON chunks (namespace);

CREATE TABLE IF NOT EXISTS schema_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// obj_type = 7 above is types.TagRef's ordinal; the partial OSP index
// only ever needs to cover REF-typed objects (§4.1's OSP definition).
