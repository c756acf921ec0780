package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"event-ticketing-core/internal/database"
	"event-ticketing-core/internal/models"
)

// setupTestDB opens TEST_DATABASE_URL inside a throwaway schema with all
// migrations applied. The schema is dropped when the test ends.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Database tests require TEST_DATABASE_URL")
	}

	admin, err := sql.Open("postgres", dsn)
	require.NoError(t, err)

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.Exec(fmt.Sprintf("CREATE SCHEMA %s", schema))
	require.NoError(t, err)

	db, err := sql.Open("postgres", withSearchPath(dsn, schema))
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
		admin.Exec(fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		admin.Close()
	})

	require.NoError(t, database.NewMigrator(db).RunMigrations())
	return db
}

func withSearchPath(dsn, schema string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + schema
	}
	return dsn + " search_path=" + schema
}

type fixture struct {
	buyer      *models.User
	officer    *models.User
	event      *models.Event
	otherEvent *models.Event
	vip        *models.TicketType
	general    *models.TicketType
}

// seedFixture creates a buyer, an officer user and two events. The first
// event carries a VIP type (quantity 2) and a General type (quantity 100).
func seedFixture(t *testing.T, db *sql.DB) *fixture {
	t.Helper()
	ctx := context.Background()

	users := NewUserRepository(db)
	events := NewEventRepository(db)
	tickets := NewTicketRepository(db)

	buyer, err := users.Create(ctx, &models.UserCreateRequest{Email: "buyer@example.com", Name: "Buyer", Role: models.UserRoleBuyer})
	require.NoError(t, err)
	officer, err := users.Create(ctx, &models.UserCreateRequest{Email: "gate@example.com", Name: "Gate", Role: models.UserRoleOfficer})
	require.NoError(t, err)
	organizer, err := users.Create(ctx, &models.UserCreateRequest{Email: "org@example.com", Name: "Org", Role: models.UserRoleOrganizer})
	require.NoError(t, err)

	start := time.Now().Add(48 * time.Hour)
	event, err := events.Create(ctx, &models.EventCreateRequest{
		OrganizerID: organizer.ID, Title: "Event A", StartDate: start, EndDate: start.Add(4 * time.Hour), TotalTickets: 102,
	})
	require.NoError(t, err)
	otherEvent, err := events.Create(ctx, &models.EventCreateRequest{
		OrganizerID: organizer.ID, Title: "Event B", StartDate: start, EndDate: start.Add(4 * time.Hour), TotalTickets: 10,
	})
	require.NoError(t, err)

	vip, err := tickets.CreateTicketType(ctx, &models.TicketTypeCreateRequest{EventID: event.ID, Name: "VIP", Price: 10000, Quantity: 2})
	require.NoError(t, err)
	general, err := tickets.CreateTicketType(ctx, &models.TicketTypeCreateRequest{EventID: event.ID, Name: "General", Price: 2500, Quantity: 100})
	require.NoError(t, err)

	return &fixture{buyer: buyer, officer: officer, event: event, otherEvent: otherEvent, vip: vip, general: general}
}

func newIssuance(db *sql.DB) *IssuanceRepository {
	return NewIssuanceRepository(db, NewLedgerRepository(db), NewOrderRepository(db), NewTicketRepository(db))
}

func fakeCredential(order *models.Order, sequence int, issuedAt time.Time) (string, error) {
	return fmt.Sprintf("TEST.%d.%d.%s", order.ID, sequence, uuid.NewString()), nil
}
