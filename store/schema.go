package store

// Schema contains the complete DDL for the knowledge-store tables.
const Schema = `
-- Saved research entries: the durable record built from captured snapshots
CREATE TABLE IF NOT EXISTS research_entries (
    id          TEXT PRIMARY KEY,
    url         TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    text        TEXT NOT NULL,
    html        TEXT NOT NULL DEFAULT '',
    analysis    TEXT NOT NULL DEFAULT '',
    headings    TEXT NOT NULL DEFAULT '[]',
    captured_at INTEGER NOT NULL,
    saved_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_url ON research_entries(url);
CREATE INDEX IF NOT EXISTS idx_entries_saved ON research_entries(saved_at DESC);

-- Navigation history: one row per completed load
CREATE TABLE IF NOT EXISTS nav_history (
    id         TEXT PRIMARY KEY,
    url        TEXT NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    visited_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_time ON nav_history(visited_at DESC);
`
