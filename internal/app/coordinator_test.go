package app_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/magnusohlin/numba/internal/app"
	"github.com/magnusohlin/numba/internal/domain"
	"github.com/magnusohlin/numba/internal/infra/memory"
	"github.com/magnusohlin/numba/internal/question"
)

func TestJoinStartAndAnswer(t *testing.T) {
	gen := question.NewGeneratorWithRand(rand.New(rand.NewSource(7)), 10*time.Second)
	h := newHarness(gen)
	ctx := context.Background()

	code, err := h.coordinator.CreateRoom(ctx, "U1")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if !regexp.MustCompile(`^[A-Z0-9]{4}$`).MatchString(code) {
		t.Fatalf("unexpected room code %q", code)
	}

	res, err := h.coordinator.JoinRoom(ctx, code, "U2", "Ada")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if res.OwnerID != "U1" || res.Rejoined {
		t.Fatalf("unexpected join result %+v", res)
	}
	update := h.rec.last(t, app.EventPlayerListUpdate).(app.PlayerListUpdate)
	if len(update.Players) != 1 || update.Players[0].Name != "Ada" || update.Players[0].Score != 0 {
		t.Fatalf("unexpected roster %+v", update.Players)
	}
	if update.Players[0].Avatar == "" {
		t.Fatalf("expected avatar for new player")
	}

	if err := h.coordinator.StartGame(ctx, code, "U1", addition); err != nil {
		t.Fatalf("start: %v", err)
	}
	start := h.rec.last(t, app.EventStartGame).(app.StartGame)
	if !regexp.MustCompile(`^\d+ \+ \d+$`).MatchString(start.Question.Prompt) {
		t.Fatalf("unexpected prompt %q", start.Question.Prompt)
	}
	if start.TimerDurationMs != 10000 || start.QuestionsAsked != 1 {
		t.Fatalf("unexpected start payload %+v", start)
	}

	if err := h.coordinator.SubmitAnswer(ctx, code, "U2", float64(start.Question.Answer), 5000); err != nil {
		t.Fatalf("answer: %v", err)
	}
	next := h.rec.last(t, app.EventNextQuestion).(app.NextQuestion)
	if next.QuestionsAsked != 2 {
		t.Fatalf("expected question 2, got %d", next.QuestionsAsked)
	}
	if len(next.Scores) != 1 || next.Scores[0].Score != 150 || next.Scores[0].Increment != 150 {
		t.Fatalf("unexpected scores %+v", next.Scores)
	}
}

func TestPoints(t *testing.T) {
	cases := map[int64]int{
		0:     100,
		999:   100,
		1000:  110,
		5000:  150,
		9999:  190,
		10000: 200,
		-20:   100,
	}
	for ms, want := range cases {
		if got := app.Points(ms); got != want {
			t.Errorf("Points(%d) = %d, want %d", ms, got, want)
		}
	}
	if app.Points(9000) <= app.Points(1000) {
		t.Fatalf("early answer must outscore late answer")
	}
}

func TestAnswerScoring(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	for _, id := range []string{"early", "late", "wrong", "greedy"} {
		if _, err := h.coordinator.JoinRoom(ctx, code, id, id); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	if err := h.coordinator.StartGame(ctx, code, "owner", addition); err != nil {
		t.Fatalf("start: %v", err)
	}

	submit := func(id string, value float64, ms int64) {
		t.Helper()
		if err := h.coordinator.SubmitAnswer(ctx, code, id, value, ms); err != nil {
			t.Fatalf("answer %s: %v", id, err)
		}
	}
	submit("early", 5, 9000)
	submit("early", 5, 9000) // repeat is ignored
	submit("late", 5, 1000)
	submit("wrong", 4, 9000)
	submit("greedy", 5, 60000) // clamped to the server countdown

	next := h.rec.last(t, app.EventNextQuestion).(app.NextQuestion)
	want := map[string]int{"early": 190, "late": 110, "wrong": 0, "greedy": 200}
	for _, s := range next.Scores {
		if s.Increment != want[s.ID] || s.Score != want[s.ID] {
			t.Errorf("%s: got score %d increment %d, want %d", s.ID, s.Score, s.Increment, want[s.ID])
		}
	}
}

func TestSessionEndsAfterTenQuestions(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_, _ = h.coordinator.JoinRoom(ctx, code, "solo", "Solo")
	if err := h.coordinator.StartGame(ctx, code, "owner", addition); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 10; i++ {
		if err := h.coordinator.SubmitAnswer(ctx, code, "solo", 5, 10000); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}

	if got := len(h.rec.all(app.EventNextQuestion)); got != 9 {
		t.Fatalf("expected 9 nextQuestion events, got %d", got)
	}
	end := h.rec.last(t, app.EventEndGame).(app.EndGame)
	if end.QuestionsAsked != 11 {
		t.Fatalf("expected questionsAsked 11, got %d", end.QuestionsAsked)
	}
	if len(end.Scores) != 1 || end.Scores[0].Score != 2000 {
		t.Fatalf("unexpected final scores %+v", end.Scores)
	}

	room, _ := h.coordinator.GetRoom(code)
	if room == nil {
		t.Fatalf("room should survive the end of a session")
	}

	// Answers after the session are ignored.
	if err := h.coordinator.SubmitAnswer(ctx, code, "solo", 5, 10000); err != nil {
		t.Fatalf("late answer: %v", err)
	}
	if got := len(h.rec.all(app.EventEndGame)); got != 1 {
		t.Fatalf("expected a single endGame, got %d", got)
	}
}

func TestRestartResetsScores(t *testing.T) {
	h := newHarness(fixedQuestions{}, app.WithMaxQuestions(1))
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p1", "P1")

	_ = h.coordinator.StartGame(ctx, code, "owner", addition)
	_ = h.coordinator.SubmitAnswer(ctx, code, "p1", 5, 10000)
	_ = h.coordinator.StartGame(ctx, code, "owner", addition)

	players, err := h.coordinator.PlayerList(ctx, code)
	if err != nil {
		t.Fatalf("player list: %v", err)
	}
	if players[0].Score != 0 {
		t.Fatalf("expected score reset on restart, got %d", players[0].Score)
	}
}

func TestBarrierIsOrderIndependent(t *testing.T) {
	type answer struct {
		id    string
		value float64
		ms    int64
	}
	answers := []answer{
		{"a", 5, 8200},
		{"b", 3, 9900},
		{"c", 5, 400},
		{"d", 5, 10000},
	}

	var baseline string
	for _, perm := range permutations(len(answers)) {
		h := newHarness(fixedQuestions{})
		ctx := context.Background()
		code, _ := h.coordinator.CreateRoom(ctx, "owner")
		for _, a := range answers {
			_, _ = h.coordinator.JoinRoom(ctx, code, a.id, a.id)
		}
		_ = h.coordinator.StartGame(ctx, code, "owner", addition)

		for _, i := range perm {
			a := answers[i]
			if err := h.coordinator.SubmitAnswer(ctx, code, a.id, a.value, a.ms); err != nil {
				t.Fatalf("answer: %v", err)
			}
		}

		next := h.rec.all(app.EventNextQuestion)
		if len(next) != 1 {
			t.Fatalf("permutation %v: expected one advance, got %d", perm, len(next))
		}
		got := fmt.Sprintf("%+v", next[0].(app.NextQuestion).Scores)
		if baseline == "" {
			baseline = got
		} else if got != baseline {
			t.Fatalf("permutation %v produced %s, want %s", perm, got, baseline)
		}
	}
}

func permutations(n int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			q := make([]int, 0, n)
			q = append(q, p[:i]...)
			q = append(q, n-1)
			q = append(q, p[i:]...)
			out = append(out, q)
		}
	}
	return out
}

func TestOwnerDisconnectAndRejoin(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_, _ = h.coordinator.JoinRoom(ctx, code, "owner", "Olive")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p2", "Pat")
	_ = h.coordinator.StartGame(ctx, code, "owner", addition)
	_ = h.coordinator.SubmitAnswer(ctx, code, "owner", 5, 3000)
	_ = h.coordinator.SubmitAnswer(ctx, code, "p2", 1, 3000)

	before, _ := h.coordinator.PlayerList(ctx, code)

	if err := h.coordinator.Disconnect(ctx, code, "owner"); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if _, ok := h.coordinator.GetRoom(code); !ok {
		t.Fatalf("owner disconnect must not delete the room")
	}
	if len(h.rec.all(app.EventRoomClosed)) != 0 {
		t.Fatalf("owner disconnect must not close the room")
	}
	update := h.rec.last(t, app.EventPlayerListUpdate).(app.PlayerListUpdate)
	if !update.Players[0].Disconnected {
		t.Fatalf("expected owner to be flagged disconnected")
	}

	res, err := h.coordinator.RejoinRoom(ctx, "owner", code)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !res.Rejoined || len(res.Players) != 2 {
		t.Fatalf("unexpected rejoin result %+v", res)
	}
	if res.Players[0] != before[0] {
		t.Fatalf("rejoin changed player: got %+v, want %+v", res.Players[0], before[0])
	}
	if res.Players[0].Score != 130 {
		t.Fatalf("expected retained score 130, got %d", res.Players[0].Score)
	}

	// Joining again with the same client id never duplicates the entry.
	res, err = h.coordinator.JoinRoom(ctx, code, "owner", "")
	if err != nil {
		t.Fatalf("join again: %v", err)
	}
	if !res.Rejoined || len(res.Players) != 2 || res.Players[0].Name != "Olive" {
		t.Fatalf("unexpected roster after repeat join %+v", res.Players)
	}
}

func TestRejoinUnknownPlayer(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")

	if _, err := h.coordinator.RejoinRoom(ctx, "ghost", code); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	if _, err := h.coordinator.RejoinRoom(ctx, "ghost", "ZZZZ"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestOwnerLeaveClosesRoom(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_, _ = h.coordinator.JoinRoom(ctx, code, "owner", "Olive")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p2", "Pat")
	_ = h.coordinator.StartGame(ctx, code, "owner", addition)
	room, _ := h.coordinator.GetRoom(code)

	if err := h.coordinator.LeaveRoom(ctx, code, "owner"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	closed := h.rec.last(t, app.EventRoomClosed).(app.RoomClosed)
	if closed.Reason != app.ReasonOwnerLeft {
		t.Fatalf("unexpected reason %q", closed.Reason)
	}
	if _, ok := h.coordinator.GetRoom(code); ok {
		t.Fatalf("room should be deleted")
	}
	if rooms := h.rec.closedRooms(); len(rooms) != 1 || rooms[0] != code {
		t.Fatalf("expected broadcaster to drop room %s, got %v", code, rooms)
	}
	if room.Counting() {
		t.Fatalf("countdown should be cancelled")
	}
	if _, err := h.coordinator.JoinRoom(ctx, code, "p3", "Late"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestPlayerLeaveCompletesBarrier(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p1", "P1")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p2", "P2")
	_ = h.coordinator.StartGame(ctx, code, "owner", addition)
	_ = h.coordinator.SubmitAnswer(ctx, code, "p1", 5, 2000)

	if err := h.coordinator.LeaveRoom(ctx, code, "p2"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	next := h.rec.last(t, app.EventNextQuestion).(app.NextQuestion)
	if len(next.Scores) != 1 || next.Scores[0].ID != "p1" {
		t.Fatalf("unexpected scores %+v", next.Scores)
	}
	if err := h.coordinator.LeaveRoom(ctx, code, "p2"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestDisconnectCompletesBarrier(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p1", "P1")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p2", "P2")
	_ = h.coordinator.StartGame(ctx, code, "owner", addition)
	_ = h.coordinator.SubmitAnswer(ctx, code, "p1", 5, 2000)

	if len(h.rec.all(app.EventNextQuestion)) != 0 {
		t.Fatalf("should wait for p2")
	}
	_ = h.coordinator.Disconnect(ctx, code, "p2")
	if len(h.rec.all(app.EventNextQuestion)) != 1 {
		t.Fatalf("disconnect should complete the barrier")
	}
}

func TestNonOwnerStartIsIgnored(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p1", "P1")

	if err := h.coordinator.StartGame(ctx, code, "p1", addition); err != nil {
		t.Fatalf("expected silent ignore, got %v", err)
	}
	if len(h.rec.all(app.EventStartGame)) != 0 {
		t.Fatalf("non-owner must not start the game")
	}
}

func TestStartGameRejectsInvalidOptions(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")

	err := h.coordinator.StartGame(ctx, code, "owner", domain.GameOptions{Operation: "modulo", Difficulty: 1})
	if !errors.Is(err, domain.ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
	err = h.coordinator.StartGame(ctx, code, "owner", domain.GameOptions{Operation: domain.OpMixed, Difficulty: 3})
	if !errors.Is(err, domain.ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestUnknownRoomAndPlayer(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()

	if _, err := h.coordinator.JoinRoom(ctx, "NOPE", "p1", "P1"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := h.coordinator.RoomOwner(ctx, "NOPE"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := h.coordinator.PlayerList(ctx, "NOPE"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_ = h.coordinator.StartGame(ctx, code, "owner", addition)
	if err := h.coordinator.SubmitAnswer(ctx, code, "stranger", 5, 1000); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	owner, err := h.coordinator.RoomOwner(ctx, code)
	if err != nil || owner != "owner" {
		t.Fatalf("unexpected owner %q, %v", owner, err)
	}
}

func TestNoAnswerCountsAsWrong(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p1", "P1")
	_ = h.coordinator.StartGame(ctx, code, "owner", addition)

	if err := h.coordinator.SubmitNoAnswer(ctx, code, "p1"); err != nil {
		t.Fatalf("no answer: %v", err)
	}
	next := h.rec.last(t, app.EventNextQuestion).(app.NextQuestion)
	if next.Scores[0].Increment != 0 || next.Scores[0].Score != 0 {
		t.Fatalf("unexpected scores %+v", next.Scores)
	}
}

func TestCreateRoomRetriesOnCollision(t *testing.T) {
	codes := []string{"AAAA", "AAAA", "AAAA", "BBBB"}
	i := 0
	h := newHarness(fixedQuestions{}, app.WithCodeGenerator(func() string {
		c := codes[i]
		i++
		return c
	}))
	ctx := context.Background()

	first, err := h.coordinator.CreateRoom(ctx, "o1")
	if err != nil || first != "AAAA" {
		t.Fatalf("first room: %q, %v", first, err)
	}
	second, err := h.coordinator.CreateRoom(ctx, "o2")
	if err != nil || second != "BBBB" {
		t.Fatalf("second room: %q, %v", second, err)
	}
	if owner, _ := h.coordinator.RoomOwner(ctx, "AAAA"); owner != "o1" {
		t.Fatalf("collision overwrote room owner: %q", owner)
	}
}

func TestCreateRoomGivesUp(t *testing.T) {
	h := newHarness(fixedQuestions{}, app.WithCodeGenerator(func() string { return "SAME" }))
	ctx := context.Background()
	if _, err := h.coordinator.CreateRoom(ctx, "o1"); err != nil {
		t.Fatalf("first room: %v", err)
	}
	if _, err := h.coordinator.CreateRoom(ctx, "o2"); !errors.Is(err, domain.ErrRoomCodesExhausted) {
		t.Fatalf("expected ErrRoomCodesExhausted, got %v", err)
	}
}

func TestDeleteRoomIsIdempotent(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")

	h.coordinator.DeleteRoom(ctx, code)
	h.coordinator.DeleteRoom(ctx, code)
	h.coordinator.DeleteRoom(ctx, "NONE")

	if _, ok := h.coordinator.GetRoom(code); ok {
		t.Fatalf("room should be gone")
	}
	if got := len(h.rec.closedRooms()); got != 1 {
		t.Fatalf("expected a single close, got %d", got)
	}
}

func TestCountdownTicksAndExpiry(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p1", "P1")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p2", "P2")
	_ = h.coordinator.StartGame(ctx, code, "owner", addition)
	_ = h.coordinator.SubmitAnswer(ctx, code, "p1", 5, 10000)

	for want := int64(9000); want >= 0; want -= 1000 {
		h.clock.Advance(time.Second)
		sync := h.rec.waitFor(t, app.EventSyncTimer).(app.SyncTimer)
		if sync.RemainingTimeMs != want {
			t.Fatalf("expected %dms remaining, got %d", want, sync.RemainingTimeMs)
		}
	}

	next := h.rec.waitFor(t, app.EventNextQuestion).(app.NextQuestion)
	if next.QuestionsAsked != 2 {
		t.Fatalf("expected question 2 after expiry, got %d", next.QuestionsAsked)
	}
	got := map[string]int{}
	for _, s := range next.Scores {
		got[s.ID] = s.Increment
	}
	if got["p1"] != 200 || got["p2"] != 0 {
		t.Fatalf("unexpected increments %v", got)
	}

	// The countdown restarts for the next question.
	h.clock.Advance(time.Second)
	sync := h.rec.waitFor(t, app.EventSyncTimer).(app.SyncTimer)
	if sync.RemainingTimeMs != 9000 {
		t.Fatalf("expected a fresh countdown, got %d", sync.RemainingTimeMs)
	}
}

func TestExpiryEndsSessionWithoutPlayers(t *testing.T) {
	h := newHarness(fixedQuestions{}, app.WithMaxQuestions(1))
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_ = h.coordinator.StartGame(ctx, code, "owner", addition)

	for i := 0; i < 10; i++ {
		h.clock.Advance(time.Second)
		h.rec.waitFor(t, app.EventSyncTimer)
	}
	end := h.rec.waitFor(t, app.EventEndGame).(app.EndGame)
	if end.QuestionsAsked != 2 || len(end.Scores) != 0 {
		t.Fatalf("unexpected end payload %+v", end)
	}
}

func TestRestartLeavesOneSchedule(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p1", "P1")
	_ = h.coordinator.StartGame(ctx, code, "owner", addition)
	_ = h.coordinator.StartGame(ctx, code, "owner", addition)

	room, _ := h.coordinator.GetRoom(code)
	if !room.Counting() {
		t.Fatalf("expected a live countdown")
	}

	h.clock.Advance(time.Second)
	sync := h.rec.waitFor(t, app.EventSyncTimer).(app.SyncTimer)
	if sync.RemainingTimeMs != 9000 {
		t.Fatalf("expected 9000ms, got %d", sync.RemainingTimeMs)
	}
	select {
	case b := <-h.rec.ch:
		t.Fatalf("unexpected extra event %s", b.event.Type())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestResultRecordedOnEndGame(t *testing.T) {
	store := memory.NewResultStore(10)
	h := newHarness(fixedQuestions{},
		app.WithMaxQuestions(1),
		app.WithResultSink(store),
		app.WithIDGenerator(func() string { return "result-1" }),
	)
	ctx := context.Background()
	code, _ := h.coordinator.CreateRoom(ctx, "owner")
	_, _ = h.coordinator.JoinRoom(ctx, code, "p1", "P1")
	_ = h.coordinator.StartGame(ctx, code, "owner", addition)
	_ = h.coordinator.SubmitAnswer(ctx, code, "p1", 5, 4000)

	deadline := time.Now().Add(2 * time.Second)
	for {
		result, err := store.Result(ctx, "result-1")
		if err == nil {
			if result.RoomCode != code || result.QuestionsAsked != 2 || result.Scores[0].Score != 140 {
				t.Fatalf("unexpected result %+v", result)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("result was not recorded: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	store := memory.NewResultStore(10)
	boom := errors.New("boom")
	sink := app.MultiSink{store, failingSink{boom}}

	err := sink.RecordResult(context.Background(), domain.GameResult{ID: "r1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if _, err := store.Result(context.Background(), "r1"); err != nil {
		t.Fatalf("first sink should still record: %v", err)
	}
}

type failingSink struct{ err error }

func (f failingSink) RecordResult(context.Context, domain.GameResult) error { return f.err }

func TestSeededRoomCanBeClosed(t *testing.T) {
	h := newHarness(fixedQuestions{})
	ctx := context.Background()
	if err := h.rooms.Insert(ctx, app.NewRoom("SEED", "owner", h.clock.Now())); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := h.coordinator.LeaveRoom(ctx, "SEED", "owner"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, ok := h.coordinator.GetRoom("SEED"); ok {
		t.Fatalf("seeded room should be deleted")
	}
	h.coordinator.DeleteRoom(ctx, "SEED")
}
