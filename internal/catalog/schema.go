package catalog

// Schema is bootstrap DDL describing the tables and columns repository.go
// expects. Production schema lives in the indexer's migrations; no code or
// test in this module executes this string.
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS stores (
  slug          TEXT PRIMARY KEY,
  store_name    TEXT,
  url           TEXT,
  platform      TEXT,
  product_count INT NOT NULL DEFAULT 0,
  indexed_at    TIMESTAMPTZ,
  last_error    TEXT
);

CREATE TABLE IF NOT EXISTS products (
  store_slug    TEXT NOT NULL REFERENCES stores(slug),
  product_id    TEXT NOT NULL,
  handle        TEXT NOT NULL,
  title         TEXT,
  product_type  TEXT,
  vendor        TEXT,
  tags          TEXT[] NOT NULL DEFAULT '{}',
  price_min     BIGINT,
  price_max     BIGINT,
  available     BOOLEAN NOT NULL DEFAULT false,
  url           TEXT,
  is_catalog_product BOOLEAN,
  option_tokens TEXT[] NOT NULL DEFAULT '{}',
  summary_short TEXT,
  summary_llm   TEXT,
  data          JSONB NOT NULL DEFAULT '{}'::jsonb,
  embedding     vector(1536),
  search_tsv    tsvector GENERATED ALWAYS AS (
    setweight(to_tsvector('simple', coalesce(title, '')), 'A') ||
    setweight(to_tsvector('simple', coalesce(product_type, '')), 'B') ||
    setweight(to_tsvector('simple', coalesce(vendor, '')), 'C') ||
    setweight(to_tsvector('simple', array_to_string(tags, ' ')), 'C')
  ) STORED,
  PRIMARY KEY (store_slug, product_id)
);

CREATE INDEX IF NOT EXISTS products_search_tsv_gin
  ON products USING GIN (search_tsv);

CREATE INDEX IF NOT EXISTS products_embedding_ivfflat
  ON products USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);

CREATE INDEX IF NOT EXISTS products_store_slug_idx
  ON products (store_slug);

CREATE TABLE IF NOT EXISTS baskets (
  basket_id     TEXT PRIMARY KEY,
  store_slug    TEXT NOT NULL REFERENCES stores(slug),
  status        TEXT NOT NULL DEFAULT 'active',
  checkout_url  TEXT,
  checked_out_at TIMESTAMPTZ,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS basket_items (
  basket_id     TEXT NOT NULL REFERENCES baskets(basket_id),
  variant_id    TEXT NOT NULL,
  handle        TEXT,
  title         TEXT,
  product_url   TEXT,
  options       JSONB NOT NULL DEFAULT '{}'::jsonb,
  unit_price    BIGINT NOT NULL DEFAULT 0,
  quantity      INT NOT NULL DEFAULT 1,
  available     BOOLEAN NOT NULL DEFAULT true,
  added_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (basket_id, variant_id)
);
`
