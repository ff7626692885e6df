package registry

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/ticketportal/core/csql"
)

// TestService holds the configuration for this test
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
// and POSTGRES_PASSWORD="docker"
type TestService struct {
	Postgres         string `env:"POSTGRES,required" description:"the connection string for the Postgres DB without password"`
	PostgresPassword string `env:"POSTGRES_PASSWORD,optional" description:"password to the Postgres DB"`
	registry         Registry
}

var testService TestService

func TestMain(m *testing.M) {
	if err := envdecode.Decode(&testService); err != nil {
		fmt.Println("skipping registry tests, no database:", err)
		os.Exit(0)
	}

	db, err := csql.OpenWithSchema(testService.Postgres, testService.PostgresPassword, "_registry_unit_test_")
	if err != nil {
		panic(err)
	}
	defer db.Close()
	if err := db.ClearSchema(); err != nil {
		panic(err)
	}

	testService.registry, err = New(db)
	if err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestRegistry(t *testing.T) {
	type foo struct {
		A string
		B string
	}
	write := foo{A: "Hello", B: "World"}

	accessor := testService.registry.Accessor("_test_")

	var something interface{}
	createdAt, err := accessor.Read("key does not exist", &something)
	require.NoError(t, err)
	assert.True(t, createdAt.IsZero(), "non existing key seems to exist")

	now := time.Now()
	require.NoError(t, accessor.Write("test", write))
	var read foo
	createdAt, err = accessor.Read("test", &read)
	require.NoError(t, err)
	assert.Equal(t, write, read)
	assert.WithinDuration(t, now, createdAt, 5*time.Second)

	write.B = "Again"
	require.NoError(t, accessor.Write("test", write))
	_, err = accessor.Read("test", &read)
	require.NoError(t, err)
	assert.Equal(t, "Again", read.B)

	var other foo
	createdAt, err = testService.registry.Accessor("_other_").Read("test", &other)
	require.NoError(t, err)
	assert.True(t, createdAt.IsZero(), "prefixes do not separate keys")

	require.NoError(t, accessor.Delete("test"))
	createdAt, err = accessor.Read("test", &read)
	require.NoError(t, err)
	assert.True(t, createdAt.IsZero())
}
