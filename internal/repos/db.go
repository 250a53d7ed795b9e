package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	// Seed baseline data if DB is empty (categories/products)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	// Ensure one account per role exists (idempotent; safe to run every start)
	if err := seedAccounts(db); err != nil {
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates all tables. Exported so tests can bootstrap an
// in-memory database with the exact production schema.
func EnsureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Categories
CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_nocase ON categories(LOWER(name));

-- Accounts
CREATE TABLE IF NOT EXISTS accounts(
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  mobile TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('buyer','seller','admin','expert','manager','agent')),
  expertise TEXT NOT NULL DEFAULT '',
  available INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(LOWER(email));
CREATE INDEX IF NOT EXISTS idx_accounts_role ON accounts(role);

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  account_id TEXT NULL REFERENCES accounts(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_account ON sessions(account_id);

-- Products (stock and sold counters live on the product row)
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  seller_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL CHECK (price > 0),
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  sold INTEGER NOT NULL DEFAULT 0 CHECK (sold >= 0),
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);
CREATE INDEX IF NOT EXISTS idx_products_seller   ON products(seller_id);
CREATE INDEX IF NOT EXISTS idx_products_name     ON products(LOWER(name));

-- Carts (exactly one per buyer)
CREATE TABLE IF NOT EXISTS carts(
  id TEXT PRIMARY KEY,
  buyer_id TEXT UNIQUE NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS cart_items(
  cart_id    TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  created_at TEXT,
  updated_at TEXT,
  PRIMARY KEY (cart_id, product_id)
);

-- Orders. buyer_id is deliberately not a foreign key: confirmed orders
-- are kept for audit after the account is deleted.
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending_otp',
  total NUMERIC NOT NULL,
  billing_name TEXT NOT NULL,
  billing_email TEXT NOT NULL,
  billing_phone TEXT NOT NULL,
  billing_address1 TEXT NOT NULL,
  billing_address2 TEXT NOT NULL DEFAULT '',
  billing_city TEXT NOT NULL,
  billing_state TEXT NOT NULL,
  billing_zip TEXT NOT NULL,
  otp_code TEXT NOT NULL DEFAULT '',
  otp_expires_at TEXT NOT NULL DEFAULT '',
  delivery_status TEXT NOT NULL DEFAULT '',
  agent_id TEXT NOT NULL DEFAULT '',
  picked_up_at TEXT NOT NULL DEFAULT '',
  delivered_at TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_buyer      ON orders(buyer_id);
CREATE INDEX IF NOT EXISTS idx_orders_agent      ON orders(agent_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id  TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, product_id)
);

-- Append-only delivery history
CREATE TABLE IF NOT EXISTS assignment_history(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  agent_id TEXT NOT NULL,
  actor_id TEXT NOT NULL,
  status TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_history_order ON assignment_history(order_id);

-- Support tickets
CREATE TABLE IF NOT EXISTS tickets(
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  subject TEXT NOT NULL,
  body TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_tickets_buyer ON tickets(buyer_id);

CREATE TABLE IF NOT EXISTS ticket_replies(
  id TEXT PRIMARY KEY,
  ticket_id TEXT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
  author_id TEXT NOT NULL,
  body TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_ticket_replies_ticket ON ticket_replies(ticket_id);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo categories/products")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO categories(id,name) VALUES
	  ('plants','Plants'),
	  ('seeds','Seeds'),
	  ('tools','Garden Tools'),
	  ('pots','Pots & Planters'),
	  ('fertilizers','Fertilizers')`)

	// Products reference the seeded seller account; make sure it exists first.
	h, _ := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), 12)
	tx.MustExec(`INSERT INTO accounts(id,username,email,mobile,password_hash,role)
	  VALUES('a-seller','greenthumb','seller@gardenly.test','5550000001',?,'seller')
	  ON CONFLICT(username) DO NOTHING`, string(h))

	tx.MustExec(`INSERT INTO products(id,category_id,seller_id,name,description,price,stock) VALUES
	  ('rose-001','plants','a-seller','Damask Rose','Fragrant heirloom rose, 1-gallon pot','14.50',25),
	  ('tomato-seeds-001','seeds','a-seller','Cherry Tomato Seeds','Packet of 40 organic seeds','3.99',200),
	  ('pruner-001','tools','a-seller','Bypass Pruning Shears','Hardened steel, 8 inch','24.00',40),
	  ('pot-terra-001','pots','a-seller','Terracotta Pot 12"','Classic unglazed planter','11.25',60),
	  ('npk-001','fertilizers','a-seller','NPK 10-10-10','All-purpose granular, 5 lb','18.75',30)`)

	return tx.Commit()
}

// seedAccounts ensures one account per role exists (idempotent).
func seedAccounts(db *sqlx.DB) error {
	type a struct {
		ID, Username, Email, Mobile, Role, Hash, Expertise string
		Available                                          bool
	}
	mk := func(id, username, email, mobile, role, raw string) a {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 12)
		return a{ID: id, Username: username, Email: email, Mobile: mobile, Role: role, Hash: string(h)}
	}

	accounts := []a{
		mk("a-buyer", "daisy", "buyer@gardenly.test", "5550000002", "buyer", "Passw0rd!"),
		mk("a-admin", "root", "admin@gardenly.test", "5550000003", "admin", "Passw0rd!"),
		mk("a-manager", "dispatch", "manager@gardenly.test", "5550000004", "manager", "Passw0rd!"),
		mk("a-agent", "wheels", "agent@gardenly.test", "5550000005", "agent", "Passw0rd!"),
		mk("a-expert", "sage", "expert@gardenly.test", "5550000006", "expert", "Passw0rd!"),
	}
	accounts[3].Available = true
	accounts[4].Expertise = "plants"

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range accounts {
		if _, err := tx.Exec(`
			INSERT INTO accounts(id,username,email,mobile,password_hash,role,expertise,available)
			VALUES(?,?,?,?,?,?,?,?)
			ON CONFLICT(username) DO NOTHING
		`, x.ID, x.Username, x.Email, x.Mobile, x.Hash, x.Role, x.Expertise, x.Available); err != nil {
			return err
		}
	}

	return tx.Commit()
}
