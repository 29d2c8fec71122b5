package persistence

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/pkg/constants"
)

func TestWithTransactionCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	tm := NewTransactionManager(db)
	repo := NewFunnelRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO "+constants.TableFunnel)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO "+constants.TableStage)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = tm.WithTransaction(func(tx *sql.Tx) error {
		txRepo := repo.WithTx(tx)
		funnel := &models.Funnel{Name: "Default"}
		if err := txRepo.CreateFunnel(context.Background(), funnel); err != nil {
			return err
		}
		stage := &models.Stage{FunnelID: funnel.ID, Name: "Novo", Position: 1}
		return txRepo.CreateStage(context.Background(), stage)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	tm := NewTransactionManager(db)
	repo := NewFunnelRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO "+constants.TableFunnel)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO "+constants.TableStage)).
		WillReturnError(errors.New("stage insert failed"))
	mock.ExpectRollback()

	err = tm.WithTransaction(func(tx *sql.Tx) error {
		txRepo := repo.WithTx(tx)
		funnel := &models.Funnel{Name: "Default"}
		if err := txRepo.CreateFunnel(context.Background(), funnel); err != nil {
			return err
		}
		stage := &models.Stage{FunnelID: funnel.ID, Name: "Novo", Position: 1}
		return txRepo.CreateStage(context.Background(), stage)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage insert failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRetryRecoversFromDeadlock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	tm := NewTransactionManager(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE "+constants.TableCard)).
		WillReturnError(errors.New("Error 1213: Deadlock found when trying to get lock"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE "+constants.TableCard)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = tm.WithRetry(func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE "+constants.TableCard+" SET state = ? WHERE id = ?", "won", "card-1")
		return err
	}, 3)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRetryGivesUpOnOtherErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	tm := NewTransactionManager(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE "+constants.TableCard)).
		WillReturnError(errors.New("Error 1054: Unknown column"))
	mock.ExpectRollback()

	err = tm.WithRetry(func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE "+constants.TableCard+" SET state = ? WHERE id = ?", "won", "card-1")
		return err
	}, 3)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
