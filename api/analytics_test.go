package api

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/saeidalz13/battleship-tcp/db/sqlc"
)

func TestAnalyticsRecorded(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	// both writes run in the background
	mock.MatchExpectationsInOrder(false)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO game_server_analytics (server_ip, games_created)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO game_server_analytics (server_ip, games_abandoned)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	server := startTestServer(t, WithDbManager(sqlc.NewDbManager(sqlc.New(db))))

	p0 := joinTestClient(t, server, "0", "red")
	_ = p0.conn.Close()

	deadline := time.Now().Add(readTimeout)
	for {
		err = mock.ExpectationsWereMet()
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expectations were not met: %v", err)
		}
		time.Sleep(time.Millisecond * 20)
	}
}

func TestAnalyticsFailureDoesNotBreakGame(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	server := startTestServer(t, WithDbManager(sqlc.NewDbManager(sqlc.New(db))))

	// no expectations: every analytics write fails
	p0, p1 := startedGame(t, server)
	p0.send("GUESS:0:0")
	p0.expect("RESULT:0,0,HIT", "TURN:YES")
	p1.expect("RESULT:0,0,HIT", "TURN:NO")
}

func TestGetServerIpNet(t *testing.T) {
	tests := []struct {
		addr     string
		expected string
		wantErr  bool
	}{
		{"127.0.0.1:5555", "127.0.0.1/32", false},
		{"[::1]:5555", "::1/128", false},
		{"localhost", "", true},
		{"host:5555", "", true},
	}

	for _, test := range tests {
		ipNet, err := getServerIpNet(test.addr)
		if (err != nil) != test.wantErr {
			t.Fatalf("%s: unexpected error state: %v", test.addr, err)
		}
		if err == nil && ipNet.String() != test.expected {
			t.Fatalf("expected ip net: %s\tgot: %s", test.expected, ipNet.String())
		}
	}
}
