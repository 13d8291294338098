package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hatidph/hatid-backend/pkg/migrate"
)

func TestValidateMigrationsDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_line_items",
		"CREATE TABLE IF NOT EXISTS order_status_history",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (qty > 0)",
		"ux_orders_order_number",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Fatalf("orders migration missing %q", check)
		}
	}
}

func TestRiderOffersMigrationEnforcesSingleOpenOffer(t *testing.T) {
	content := readMigration(t, "*_create_rider_offers.sql")

	checks := []string{
		"ux_rider_offers_open_per_order",
		"WHERE status = 'offered'",
		"ux_rider_offers_accepted_per_order",
		"WHERE status = 'accepted'",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Fatalf("rider offers migration missing %q", check)
		}
	}
}

func TestRefundsMigrationEnforcesSingleOpenRefund(t *testing.T) {
	content := readMigration(t, "*_create_refunds.sql")

	checks := []string{
		"ux_refunds_open_per_order",
		"WHERE status IN ('pending', 'processing')",
		"CHECK (percentage >= 0 AND percentage <= 100)",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Fatalf("refunds migration missing %q", check)
		}
	}
}

func TestOutboxMigrationContainsDedupIndex(t *testing.T) {
	content := readMigration(t, "*_create_outbox.sql")

	if !strings.Contains(content, "ux_outbox_events_event_aggregate") {
		t.Fatalf("outbox migration missing dedup index")
	}
	if !strings.Contains(content, "WHERE published_at IS NULL") {
		t.Fatalf("outbox migration missing unpublished partial index")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
