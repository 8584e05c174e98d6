package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS categories (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    category_name        TEXT NOT NULL UNIQUE,
    description          TEXT,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    project_name         TEXT NOT NULL UNIQUE,
    project_code         TEXT,
    purchase_order       TEXT,
    category_id          INTEGER REFERENCES categories(id) ON DELETE SET NULL,
    executing_company    TEXT,
    consulting_company   TEXT,
    contractor           TEXT,
    project_manager      TEXT,
    start_date           TEXT,
    end_date             TEXT,
    total_budget         REAL NOT NULL DEFAULT 0,
    location             TEXT,
    project_type         TEXT,
    description          TEXT,
    display_order        INTEGER NOT NULL DEFAULT 0,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS progress (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    project_name         TEXT NOT NULL REFERENCES projects(project_name) ON DELETE CASCADE ON UPDATE CASCADE,
    entry_date           TEXT NOT NULL,
    planned_completion   REAL NOT NULL DEFAULT 0,
    planned_cost         REAL NOT NULL DEFAULT 0,
    actual_completion    REAL NOT NULL DEFAULT 0,
    actual_cost          REAL NOT NULL DEFAULT 0,
    notes                TEXT
);

CREATE TABLE IF NOT EXISTS resources (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    project_name         TEXT NOT NULL REFERENCES projects(project_name) ON DELETE CASCADE ON UPDATE CASCADE,
    resource_type        TEXT NOT NULL,
    name                 TEXT NOT NULL,
    quantity             REAL NOT NULL DEFAULT 0,
    daily_rate           REAL NOT NULL DEFAULT 0,
    start_date           TEXT,
    end_date             TEXT,
    notes                TEXT
);

CREATE TABLE IF NOT EXISTS original_files (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    file_name            TEXT NOT NULL,
    file_content         BLOB NOT NULL,
    file_hash            TEXT NOT NULL UNIQUE,
    batch_id             TEXT NOT NULL,
    projects             TEXT,
    imported_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_progress_project_date ON progress(project_name, entry_date);
CREATE INDEX IF NOT EXISTS idx_resources_project ON resources(project_name, resource_type);
`

// defaultCategories are seeded into every new database.
var defaultCategories = []struct{ name, description string }{
	{"Uncategorized", "Projects without a category"},
	{"Sewerage Projects", "Sewerage networks and treatment"},
	{"Water Projects", "Water supply and distribution"},
	{"Construction Projects", "Buildings and civil works"},
}
