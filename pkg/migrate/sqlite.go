package migrate

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for the local SQLite mode. Column
// types use SQLite affinities (DATETIME/DATE so the driver parses timestamps)
// and keep the same partial unique indexes.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS vendors (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  business_name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  is_verified INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS listings (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  listing_type TEXT NOT NULL,
  price NUMERIC NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS user_profiles (
  id TEXT PRIMARY KEY,
  full_name TEXT,
  email TEXT,
  phone TEXT
);

CREATE TABLE IF NOT EXISTS chat_threads (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  listing_id TEXT,
  lead_id TEXT,
  order_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);

CREATE TABLE IF NOT EXISTS offers (
  id TEXT PRIMARY KEY,
  thread_id TEXT NOT NULL,
  listing_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  offered_price NUMERIC NOT NULL,
  original_price NUMERIC NOT NULL,
  customized_price NUMERIC,
  customization TEXT,
  message TEXT,
  counter_price NUMERIC,
  counter_message TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  order_id TEXT,
  lead_id TEXT,
  event_type TEXT,
  event_date DATE,
  event_time TEXT,
  venue_address TEXT,
  guest_count INTEGER,
  accepted_at DATETIME,
  rejected_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_offers_active_thread_listing
  ON offers(thread_id, listing_id)
  WHERE status IN ('pending', 'countered');

CREATE TABLE IF NOT EXISTS leads (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  listing_id TEXT,
  thread_id TEXT,
  name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  event_type TEXT,
  event_date DATE,
  event_time TEXT,
  venue_address TEXT,
  guest_count INTEGER,
  budget TEXT,
  message TEXT,
  status TEXT NOT NULL DEFAULT 'new',
  source TEXT NOT NULL DEFAULT 'inquiry',
  order_id TEXT,
  token_amount NUMERIC,
  created_at DATETIME,
  updated_at DATETIME
);

CREATE TABLE IF NOT EXISTS order_number_sequences (
  year INTEGER PRIMARY KEY,
  last_value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  user_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  listing_id TEXT NOT NULL,
  offer_id TEXT,
  item_type TEXT NOT NULL,
  event_type TEXT,
  event_date DATE,
  event_time TEXT,
  venue_address TEXT,
  guest_count INTEGER,
  base_amount NUMERIC NOT NULL,
  add_ons_amount NUMERIC NOT NULL DEFAULT 0,
  customizations_amount NUMERIC NOT NULL DEFAULT 0,
  discount_amount NUMERIC NOT NULL DEFAULT 0,
  platform_fee NUMERIC NOT NULL DEFAULT 0,
  tax_amount NUMERIC NOT NULL DEFAULT 0,
  total_amount NUMERIC NOT NULL,
  token_amount NUMERIC NOT NULL DEFAULT 0,
  token_paid NUMERIC NOT NULL DEFAULT 0,
  balance_amount NUMERIC NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  status TEXT NOT NULL DEFAULT 'pending',
  awaiting_token_payment INTEGER NOT NULL DEFAULT 0,
  customer_name TEXT,
  customer_email TEXT,
  customer_phone TEXT,
  customizations TEXT,
  notes TEXT,
  confirmed_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number ON orders(order_number);

CREATE TABLE IF NOT EXISTS order_timeline (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  stage TEXT NOT NULL,
  status TEXT NOT NULL,
  notes TEXT,
  completed_at DATETIME,
  created_at DATETIME
);

CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  payment_type TEXT NOT NULL,
  payment_method TEXT,
  transaction_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  gateway_response TEXT,
  failure_reason TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_transaction_id
  ON payments(transaction_id)
  WHERE transaction_id IS NOT NULL;

CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_completed_token_per_order
  ON payments(order_id)
  WHERE payment_type = 'token' AND status = 'completed';

CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);

CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_dlq_event_id ON outbox_dlq(event_id);
`

// ApplySQLite creates the booking schema on a SQLite connection. It is
// idempotent and used by the local SQLite mode and by package tests.
func ApplySQLite(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	for _, stmt := range strings.Split(sqliteSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
