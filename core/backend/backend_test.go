package backend

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/relabs-tech/ticketportal/core"
	"github.com/relabs-tech/ticketportal/core/access"
	"github.com/relabs-tech/ticketportal/core/client"
	"github.com/relabs-tech/ticketportal/core/store"
	"github.com/relabs-tech/ticketportal/core/ticket"
)

// recorder is a notifier which remembers all events
type recorder struct {
	mutex  sync.Mutex
	events []core.Event
}

func (r *recorder) Notify(ctx context.Context, event core.Event) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) last() core.Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if len(r.events) == 0 {
		return core.Event{}
	}
	return r.events[len(r.events)-1]
}

// TestService holds the backend under test and clients for all test users
type TestService struct {
	backend   *Backend
	router    *mux.Router
	store     *store.Memory
	issuer    *access.TokenIssuer
	notifier  *recorder
	anonymous client.Client
	author    client.Client // noobMaster, CLIENT
	client    client.Client // someClient, CLIENT
	agent     client.Client // agent007, AGENT
	agent2    client.Client // agentSmith, AGENT
}

var testService TestService

const testPassword = "secret"

func TestMain(m *testing.M) {
	access.PasswordCost = bcrypt.MinCost

	secret, err := access.GenerateSecret()
	if err != nil {
		panic(err)
	}
	testService.router = mux.NewRouter()
	testService.store = store.NewMemory()
	testService.issuer = access.NewTokenIssuer(secret)
	testService.notifier = &recorder{}
	testService.backend = New(&Builder{
		Router:   testService.router,
		Store:    testService.store,
		Issuer:   testService.issuer,
		Notifier: testService.notifier,
	})
	err = testService.backend.EnsureUsers(context.Background(),
		access.Account{Username: "noobMaster", Role: ticket.RoleClient, Password: testPassword},
		access.Account{Username: "someClient", Role: ticket.RoleClient, Password: testPassword},
		access.Account{Username: "agent007", Role: ticket.RoleAgent, Password: testPassword},
		access.Account{Username: "agentSmith", Role: ticket.RoleAgent, Password: testPassword},
	)
	if err != nil {
		panic(err)
	}

	testService.anonymous = client.NewWithRouter(testService.router)
	signIn := func(username string) client.Client {
		token, err := testService.anonymous.Authenticate(username, testPassword)
		if err != nil {
			panic(err)
		}
		return testService.anonymous.WithToken(token)
	}
	testService.author = signIn("noobMaster")
	testService.client = signIn("someClient")
	testService.agent = signIn("agent007")
	testService.agent2 = signIn("agentSmith")

	os.Exit(m.Run())
}

// createTestTicket creates a ticket as noobMaster
func createTestTicket(t *testing.T, title string) ticket.Ticket {
	created, err := testService.author.CreateTicket(ticket.CreateInput{
		Title:       title,
		Description: "created by a test",
		Category:    ticket.CategoryBug,
	})
	if err != nil {
		t.Fatal(err)
	}
	return created
}
