package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mirabelleshop/cart-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestCartMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_carts_table.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS carts",
		"CREATE TABLE IF NOT EXISTS cart_lines",
		"CREATE INDEX IF NOT EXISTS idx_carts_session_id",
		"CREATE INDEX IF NOT EXISTS idx_cart_lines_cart_id",
		"applied_promo_codes JSONB",
		"ON DELETE CASCADE",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPromotionMigrationConstrainsType(t *testing.T) {
	content := readMigration(t, "*_create_promotions_table.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS promotions",
		"CHECK (type IN ('percentage', 'fixed', 'free_shipping'))",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_promotions_code",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
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
