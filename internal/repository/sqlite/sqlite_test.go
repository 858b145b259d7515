package sqlite

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seams/internal/model"
	"seams/internal/repository"
)

var (
	_ repository.UserRepository        = (*UserRepository)(nil)
	_ repository.TableAdmin            = (*TableAdmin)(nil)
	_ repository.ObservationRepository = (*ObservationRepository)(nil)
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabase_Migration(t *testing.T) {
	db := newTestDB(t)

	tables, err := NewTableAdmin(db).ListTables()
	require.NoError(t, err)

	var names []string
	for _, tbl := range tables {
		names = append(names, tbl.Name)
	}
	assert.Contains(t, names, "users")
	assert.Contains(t, names, "dotpoint_observations")
}

func TestUserRepository_CRUD(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	created, err := repo.CreateTable()
	require.NoError(t, err)
	assert.False(t, created, "table exists after migration")

	u := &model.User{Name: " Ada ", Email: "ada@example.org", Affiliation: "SGU"}
	id, err := repo.Insert(u)
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "Ada", u.Name)

	_, err = repo.Insert(&model.User{Name: "Ada", Email: "ada@example.org", Affiliation: "Other"})
	assert.ErrorIs(t, err, repository.ErrUserExists)

	_, err = repo.Insert(&model.User{Name: "Ada", Email: "ada@work.example", Affiliation: "SGU"})
	require.NoError(t, err, "same name with another email is a different user")

	_, err = repo.Insert(&model.User{Name: "Bo", Email: "", Affiliation: "SGU"})
	assert.ErrorIs(t, err, repository.ErrInvalidUser)

	users, err := repo.List()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ada@example.org", users[0].Email)
	assert.False(t, users[0].CreatedAt.IsZero())

	got, err := repo.GetByName("Ada")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	require.NoError(t, repo.DeleteByName("Ada"))
	assert.ErrorIs(t, repo.DeleteByName("Ada"), repository.ErrUserNotFound)

	_, err = repo.GetByName("Ada")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserRepository_CreateTableAfterDrop(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	require.NoError(t, NewTableAdmin(db).DropTable("users"))

	created, err := repo.CreateTable()
	require.NoError(t, err)
	assert.True(t, created)

	_, err = repo.Insert(&model.User{Name: "Ada", Email: "a@b.c", Affiliation: "SGU"})
	assert.NoError(t, err)
}

func TestUserRepository_ConcurrentInsert(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := repo.Insert(&model.User{Name: fmt.Sprintf("user%d", idx), Email: "x@y.z", Affiliation: "SGU"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	users, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, users, 10)
}

func TestTableAdmin_Schema(t *testing.T) {
	admin := NewTableAdmin(newTestDB(t))

	cols, err := admin.TableSchema("users")
	require.NoError(t, err)
	require.Len(t, cols, 5)
	assert.Equal(t, "id", cols[0].Name)
	assert.True(t, cols[0].PrimaryKey)
	assert.Equal(t, "name", cols[1].Name)
	assert.True(t, cols[1].NotNull)
	require.NotNil(t, cols[4].Default)
	assert.Equal(t, "CURRENT_TIMESTAMP", *cols[4].Default)

	_, err = admin.TableSchema("missing_table")
	assert.ErrorIs(t, err, repository.ErrTableNotFound)
}

func TestTableAdmin_RejectsInvalidIdentifiers(t *testing.T) {
	db := newTestDB(t)
	admin := NewTableAdmin(db)

	for _, name := range []string{"users; DROP TABLE users", `users"`, "1users", "", "user-table"} {
		assert.ErrorIs(t, admin.DropTable(name), repository.ErrInvalidIdentifier, name)
		_, err := admin.TableSchema(name)
		assert.ErrorIs(t, err, repository.ErrInvalidIdentifier, name)
	}

	tables, err := admin.ListTables()
	require.NoError(t, err)
	assert.Len(t, tables, 2, "nothing was dropped")

	assert.ErrorIs(t, admin.DropTable("nope"), repository.ErrTableNotFound)
}

func TestObservationRepository_ReplaceFrame(t *testing.T) {
	repo := NewObservationRepository(newTestDB(t))
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := []model.Observation{
		{PointID: 1, Kind: model.ObservationTaxon, Value: "Zostera marina", AnnotatedBy: "Ada", AnnotatedAt: at},
		{PointID: 1, Kind: model.ObservationSubstrate, Value: "Sa", AnnotatedBy: "Ada", AnnotatedAt: at},
		{PointID: 2, Kind: model.ObservationTaxon, Value: "Zostera marina", AnnotatedBy: "Ada", AnnotatedAt: at},
	}
	require.NoError(t, repo.ReplaceFrame("S1", "ST01", 125, first))
	require.NoError(t, repo.ReplaceFrame("S1", "ST02", 0, []model.Observation{
		{PointID: 4, Kind: model.ObservationTaxon, Value: "Mytilus edulis"},
	}))

	got, err := repo.GetByFrame("S1", "ST01", 125)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "S1", got[0].SurveyID)
	assert.Equal(t, 125, got[0].FrameID)
	assert.True(t, at.Equal(got[0].AnnotatedAt))

	counts, err := repo.TaxonCounts("S1")
	require.NoError(t, err)
	assert.Equal(t, []model.TaxonCount{{Name: "Zostera marina", Count: 2}, {Name: "Mytilus edulis", Count: 1}}, counts)

	require.NoError(t, repo.ReplaceFrame("S1", "ST01", 125, first[:1]))
	got, err = repo.GetByFrame("S1", "ST01", 125)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	n, err := repo.CountBySurvey("S1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.DeleteBySurvey("S1"))
	n, err = repo.CountBySurvey("S1")
	require.NoError(t, err)
	assert.Zero(t, n)
}
