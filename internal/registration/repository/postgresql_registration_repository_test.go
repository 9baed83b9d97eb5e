package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuYehTarn/jitr/internal/registration/domain"
	"github.com/SuYehTarn/jitr/internal/testutil"
)

var registrationColumnNames = []string{
	"id", "ca_id", "ca_key_id", "ca_certificate_id", "ca_certificate_pem", "registration_code",
	"identity_name", "identity_reference", "identity_actions", "verifier_names", "registered_at", "updated_at",
}

func TestPostgreSQLRegistrationRepository_Upsert(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLRegistrationRepository(db)
	now := time.Now().UTC()
	r := newRecord("corp", now, "chain", "ocsp")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registrations")).
		WithArgs(
			r.ID, "corp", "key-corp", "cert-corp", "", "",
			r.Identity.Name, r.Identity.Reference,
			sqlmock.AnyArg(), `["chain","ocsp"]`, now, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLRegistrationRepository_Upsert_Error(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLRegistrationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registrations")).WillReturnError(assert.AnError)

	err := repo.Upsert(context.Background(), newRecord("corp", time.Now()))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failed to upsert registration")
}

func TestPostgreSQLRegistrationRepository_GetByCAID(t *testing.T) {
	now := time.Now().UTC()
	id := uuid.Must(uuid.NewV7())

	t.Run("found", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewPostgreSQLRegistrationRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM registrations WHERE ca_id = $1")).
			WithArgs("corp").
			WillReturnRows(sqlmock.NewRows(registrationColumnNames).AddRow(
				id.String(), "corp", "ab", "cert-1", "pem", "code",
				"jitr-activator-corp", "role/jitr-activator-corp", `["iot:TagResource"]`, `["chain"]`, now, now,
			))

		r, err := repo.GetByCAID(context.Background(), "corp")
		require.NoError(t, err)
		assert.Equal(t, id, r.ID)
		assert.Equal(t, []string{"chain"}, r.VerifierNames)
		assert.Equal(t, []string{"iot:TagResource"}, r.Identity.Actions)
		assert.Equal(t, "role/jitr-activator-corp", r.Identity.Reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewPostgreSQLRegistrationRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM registrations WHERE ca_id = $1")).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByCAID(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrRegistrationNotFound)
	})

	t.Run("corrupt verifier names", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewPostgreSQLRegistrationRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM registrations WHERE ca_id = $1")).
			WillReturnRows(sqlmock.NewRows(registrationColumnNames).AddRow(
				id.String(), "corp", "", "", "", "", "", "", `[]`, `not json`, now, now,
			))

		_, err := repo.GetByCAID(context.Background(), "corp")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrRegistrationNotFound)
	})
}

func TestPostgreSQLRegistrationRepository_GetByKeyID(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLRegistrationRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM registrations WHERE ca_key_id = $1")).
		WithArgs("ab12").
		WillReturnRows(sqlmock.NewRows(registrationColumnNames).AddRow(
			uuid.NewString(), "corp", "ab12", "", "", "", "", "", `[]`, `[]`, now, now,
		))

	r, err := repo.GetByKeyID(context.Background(), "ab12")
	require.NoError(t, err)
	assert.Equal(t, "corp", r.CAID)
	assert.Empty(t, r.VerifierNames)
}

func TestPostgreSQLRegistrationRepository_List(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLRegistrationRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY registered_at ASC, ca_id ASC LIMIT $1 OFFSET $2")).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows(registrationColumnNames).
			AddRow(uuid.NewString(), "a", "", "", "", "", "", "", `[]`, `[]`, now, now).
			AddRow(uuid.NewString(), "b", "", "", "", "", "", "", `[]`, `["chain"]`, now, now))

	list, err := repo.List(context.Background(), 20, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].CAID)
	assert.Equal(t, []string{"chain"}, list[1].VerifierNames)
	assert.NoError(t, mock.ExpectationsWereMet())
}
