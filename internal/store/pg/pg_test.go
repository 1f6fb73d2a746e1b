package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"hrcore.io/internal/audit"
	"hrcore.io/internal/auth"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewStore(db), mock
}

func TestUserCreate(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("insert into users").
		WithArgs("alice", "alice@example.com", "hash", true, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(42), now, now))

	u := &auth.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", Active: true}
	if err := store.Users(context.Background()).Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID != 42 {
		t.Fatalf("expected id 42, got %d", u.ID)
	}
}

func TestUserCreateUniqueViolation(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("insert into users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	u := &auth.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", Active: true}
	err := store.Users(context.Background()).Create(context.Background(), u)
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUserFindNullableColumns(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("select id, username, email, password_hash").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "password_hash", "active",
			"company_id", "manager_id", "created_at", "updated_at",
		}).AddRow(int64(42), "alice", "alice@example.com", "hash", true, int64(7), nil, now, now))

	u, err := store.Users(context.Background()).Find(context.Background(), 42)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if u.CompanyID == nil || *u.CompanyID != 7 {
		t.Fatalf("expected company 7, got %v", u.CompanyID)
	}
	if u.ManagerID != nil {
		t.Fatalf("expected nil manager, got %v", *u.ManagerID)
	}
}

func TestUserFindNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("select id, username, email, password_hash").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	if _, err := store.Users(context.Background()).Find(context.Background(), 99); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRoleNames(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("select r.name").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("ROLE_EMPLOYEE").AddRow("ROLE_HR"))

	names, err := store.Users(context.Background()).RoleNames(context.Background(), 42)
	if err != nil {
		t.Fatalf("RoleNames: %v", err)
	}
	if len(names) != 2 || names[0] != "ROLE_EMPLOYEE" || names[1] != "ROLE_HR" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestSetManagerMissingUser(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("update users set manager_id").
		WithArgs(int64(99), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	managerID := int64(1)
	err := store.Users(context.Background()).SetManager(context.Background(), 99, &managerID)
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignRoleForeignKeyViolation(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("insert into user_roles").
		WithArgs(int64(99), int64(1)).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "user_roles_user_id_fkey"})

	err := store.Roles(context.Background()).Assign(context.Background(), 99, 1)
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompanyCreateConflict(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("insert into companies").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "companies_name_key"})

	c := &auth.Company{Name: "Initech", Active: true}
	err := store.Companies(context.Background()).Create(context.Background(), c)
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCompanyList(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("select id, name, active, created_at, updated_at from companies order by name").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active", "created_at", "updated_at"}).
			AddRow(int64(2), "Globex", true, now, now).
			AddRow(int64(1), "Initech", true, now, now))

	companies, err := store.Companies(context.Background()).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(companies) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(companies))
	}
	if companies[0].Name != "Globex" || companies[1].ID != 1 {
		t.Fatalf("unexpected rows %+v", companies)
	}
}

func TestRoleEnsureInsertsEach(t *testing.T) {
	store, mock := newMock(t)

	roles := []auth.Role{
		{Name: "ROLE_SUPER_ADMIN", Global: true},
		{Name: "ROLE_HR"},
	}
	for _, r := range roles {
		mock.ExpectExec("insert into roles").
			WithArgs(r.Name, r.Global).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	if err := store.Roles(context.Background()).Ensure(context.Background(), roles); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
}

func TestAuditAppend(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()
	actorID := int64(42)

	mock.ExpectExec("insert into audit_events").
		WithArgs("01J0000000000000000000000X", now, "alice", &actorID, "auth.login",
			"user", "42", "login succeeded", "192.0.2.1", audit.StatusSuccess).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Audit(context.Background()).Append(context.Background(), &audit.Event{
		ID:         "01J0000000000000000000000X",
		Timestamp:  now,
		Actor:      "alice",
		ActorID:    &actorID,
		Action:     "auth.login",
		TargetType: "user",
		TargetID:   "42",
		Details:    "login succeeded",
		IPAddress:  "192.0.2.1",
		Status:     audit.StatusSuccess,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestAuditSearch(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`select count\(\*\) from audit_events`).
		WithArgs("ali", "auth.login", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	mock.ExpectQuery("from audit_events").
		WithArgs("ali", "auth.login", nil, nil, 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "occurred_at", "actor_username", "actor_id", "action",
			"target_type", "target_id", "details", "ip_address", "status",
		}).
			AddRow("01J0B", now, "alice", int64(42), "auth.login", "user", "42", "", "192.0.2.1", audit.StatusSuccess).
			AddRow("01J0A", now.Add(-time.Minute), "alice", nil, "auth.login", "user", "", "", "", audit.StatusFailure))

	events, total, err := store.Audit(context.Background()).Search(context.Background(), audit.Filter{
		Actor:   "ali",
		Action:  "auth.login",
		Page:    2,
		PerPage: 10,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 12 {
		t.Fatalf("expected total 12, got %d", total)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ActorID == nil || *events[0].ActorID != 42 {
		t.Fatalf("expected actor id 42, got %v", events[0].ActorID)
	}
	if events[1].ActorID != nil {
		t.Fatalf("expected nil actor id, got %v", *events[1].ActorID)
	}
}

func TestAuditSearchAscendingOrder(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`select count\(\*\) from audit_events`).
		WithArgs("", "", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery("order by occurred_at asc, id asc").
		WithArgs("", "", nil, nil, 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "occurred_at", "actor_username", "actor_id", "action",
			"target_type", "target_id", "details", "ip_address", "status",
		}))

	_, _, err := store.Audit(context.Background()).Search(context.Background(), audit.Filter{Asc: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
}
