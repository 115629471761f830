package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"live-classroom/config"
	"live-classroom/constant"
	"live-classroom/entities"
	"live-classroom/pkg/relay"
)

func testConfig() *config.Config {
	return &config.Config{
		Relay: config.Relay{Url: "wss://relay.example"},
		Chat:  config.Chat{HistoryLimit: 500},
	}
}

func seedClass(repo *fakeRepo) (*entities.Class, uuid.UUID, uuid.UUID) {
	teacherId := uuid.New()
	studentId := uuid.New()
	class := &entities.Class{
		ID:        uuid.New(),
		TeacherId: teacherId,
		StudentId: studentId,
		Status:    constant.ClassStatusScheduled,
	}
	repo.classes[class.ID] = class
	return class, teacherId, studentId
}

func seedLiveSession(repo *fakeRepo, classId uuid.UUID) *entities.ClassSession {
	session := &entities.ClassSession{
		ID:        uuid.New(),
		ClassId:   classId,
		Status:    constant.SessionStatusLive,
		RoomName:  "class-" + classId.String() + "-1700000000",
		StartedAt: time.Now().UTC().Add(-10 * time.Minute),
	}
	repo.sessions[session.ID] = session
	return session
}

func newSessionService(repo *fakeRepo, media *fakeRelay) SessionService {
	tokens := relay.NewTokenIssuer("APIkey123", "supersecretsupersecret")
	return NewSessionService(repo, media, tokens, testConfig())
}

func TestCreateSession(t *testing.T) {
	repo := newFakeRepo()
	class, teacherId, _ := seedClass(repo)
	media := &fakeRelay{}
	svc := newSessionService(repo, media)

	resp, err := svc.Create(context.Background(), teacherId, class.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resp.MediaToken == "" {
		t.Error("expected a media token")
	}
	if resp.RelayUrl != "wss://relay.example" {
		t.Errorf("relay url = %q", resp.RelayUrl)
	}
	if len(media.rooms) != 1 || media.rooms[0] != resp.RoomName {
		t.Errorf("expected room %q created on the relay, got %v", resp.RoomName, media.rooms)
	}

	session, err := repo.FindSessionById(context.Background(), resp.SessionId)
	if err != nil {
		t.Fatal(err)
	}
	if session.Status != constant.SessionStatusLive {
		t.Errorf("session status = %s, want live", session.Status)
	}
	if class.Status != constant.ClassStatusInProgress {
		t.Errorf("class status = %s, want in_progress", class.Status)
	}

	// The teacher is seated immediately; they do not call join.
	if _, err := repo.FindParticipant(context.Background(), session.ID, teacherId); err != nil {
		t.Errorf("expected teacher participant row: %v", err)
	}
	if !repo.hasLog(session.ID, constant.LogSessionCreated) {
		t.Error("expected session_created log entry")
	}
}

func TestCreateSessionRequiresAssignedTeacher(t *testing.T) {
	repo := newFakeRepo()
	class, _, studentId := seedClass(repo)
	svc := newSessionService(repo, &fakeRelay{})

	if _, err := svc.Create(context.Background(), studentId, class.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("student create: got %v, want ErrForbidden", err)
	}
	if _, err := svc.Create(context.Background(), uuid.New(), class.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger create: got %v, want ErrForbidden", err)
	}
}

func TestCreateSessionUnknownClass(t *testing.T) {
	repo := newFakeRepo()
	svc := newSessionService(repo, &fakeRelay{})

	if _, err := svc.Create(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestCreateSessionRejectsSecondLiveSession(t *testing.T) {
	repo := newFakeRepo()
	class, teacherId, _ := seedClass(repo)
	svc := newSessionService(repo, &fakeRelay{})

	if _, err := svc.Create(context.Background(), teacherId, class.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(context.Background(), teacherId, class.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second create while live: got %v, want ErrInvalidState", err)
	}
}

func TestJoinSession(t *testing.T) {
	repo := newFakeRepo()
	class, _, studentId := seedClass(repo)
	session := seedLiveSession(repo, class.ID)
	svc := newSessionService(repo, &fakeRelay{})

	resp, err := svc.Join(context.Background(), studentId, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resp.RoomName != session.RoomName {
		t.Errorf("room name = %q, want %q", resp.RoomName, session.RoomName)
	}
	if resp.MediaToken == "" {
		t.Error("expected a media token")
	}

	p, err := repo.FindParticipant(context.Background(), session.ID, studentId)
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != constant.RoleStudent {
		t.Errorf("role = %s, want student", p.Role)
	}
	if !repo.hasLog(session.ID, constant.LogParticipantJoined) {
		t.Error("expected participant_joined log entry")
	}
}

func TestJoinSessionIdempotentRejoin(t *testing.T) {
	repo := newFakeRepo()
	class, _, studentId := seedClass(repo)
	session := seedLiveSession(repo, class.ID)
	svc := newSessionService(repo, &fakeRelay{})

	if _, err := svc.Join(context.Background(), studentId, session.ID); err != nil {
		t.Fatal(err)
	}
	left := time.Now().UTC()
	p, _ := repo.FindParticipant(context.Background(), session.ID, studentId)
	p.LeftAt = &left

	if _, err := svc.Join(context.Background(), studentId, session.ID); err != nil {
		t.Fatalf("rejoin must succeed: %v", err)
	}

	count, _ := repo.CountParticipants(context.Background(), session.ID)
	if count != 1 {
		t.Errorf("rejoin created a second row, count = %d", count)
	}
	p, _ = repo.FindParticipant(context.Background(), session.ID, studentId)
	if p.LeftAt != nil {
		t.Error("rejoin must clear left_at")
	}
}

func TestJoinSessionForbiddenForStranger(t *testing.T) {
	repo := newFakeRepo()
	class, _, _ := seedClass(repo)
	session := seedLiveSession(repo, class.ID)
	svc := newSessionService(repo, &fakeRelay{})

	if _, err := svc.Join(context.Background(), uuid.New(), session.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

func TestJoinSessionEnded(t *testing.T) {
	repo := newFakeRepo()
	class, _, studentId := seedClass(repo)
	session := seedLiveSession(repo, class.ID)
	session.Status = constant.SessionStatusEnded
	svc := newSessionService(repo, &fakeRelay{})

	if _, err := svc.Join(context.Background(), studentId, session.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("got %v, want ErrInvalidState", err)
	}
}

func TestEndSession(t *testing.T) {
	repo := newFakeRepo()
	class, teacherId, studentId := seedClass(repo)
	session := seedLiveSession(repo, class.ID)
	svc := newSessionService(repo, &fakeRelay{})

	joined := time.Now().UTC().Add(-5 * time.Minute)
	for _, userId := range []uuid.UUID{teacherId, studentId} {
		repo.participants = append(repo.participants, &entities.SessionParticipant{
			ID:        uuid.New(),
			SessionId: session.ID,
			UserId:    userId,
			JoinedAt:  joined,
		})
	}

	if err := svc.End(context.Background(), teacherId, session.ID); err != nil {
		t.Fatal(err)
	}

	if session.Status != constant.SessionStatusEnded {
		t.Errorf("session status = %s, want ended", session.Status)
	}
	if session.EndedAt == nil {
		t.Fatal("expected ended_at to be set")
	}
	if class.Status != constant.ClassStatusCompleted {
		t.Errorf("class status = %s, want completed", class.Status)
	}
	for _, p := range repo.participants {
		if p.LeftAt == nil {
			t.Fatalf("participant %s still open after end", p.UserId)
		}
		if p.DurationSeconds == nil {
			t.Fatalf("participant %s has no duration", p.UserId)
		}
		if got := *p.DurationSeconds; got < 299 || got > 301 {
			t.Errorf("duration = %ds, want ~300", got)
		}
	}
	if !repo.hasLog(session.ID, constant.LogSessionEnded) {
		t.Error("expected session_ended log entry")
	}
}

func TestEndSessionClampsNegativeDuration(t *testing.T) {
	repo := newFakeRepo()
	class, teacherId, _ := seedClass(repo)
	session := seedLiveSession(repo, class.ID)
	svc := newSessionService(repo, &fakeRelay{})

	// joined_at in the future, as with a skewed writer clock
	repo.participants = append(repo.participants, &entities.SessionParticipant{
		ID:        uuid.New(),
		SessionId: session.ID,
		UserId:    teacherId,
		JoinedAt:  time.Now().UTC().Add(time.Hour),
	})

	if err := svc.End(context.Background(), teacherId, session.ID); err != nil {
		t.Fatal(err)
	}
	if got := *repo.participants[0].DurationSeconds; got != 0 {
		t.Errorf("duration = %d, want clamped 0", got)
	}
}

func TestEndSessionTwiceIsInvalid(t *testing.T) {
	repo := newFakeRepo()
	class, teacherId, _ := seedClass(repo)
	session := seedLiveSession(repo, class.ID)
	svc := newSessionService(repo, &fakeRelay{})

	if err := svc.End(context.Background(), teacherId, session.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.End(context.Background(), teacherId, session.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second end: got %v, want ErrInvalidState", err)
	}
}

func TestEndSessionForbiddenForStudent(t *testing.T) {
	repo := newFakeRepo()
	class, _, studentId := seedClass(repo)
	session := seedLiveSession(repo, class.ID)
	svc := newSessionService(repo, &fakeRelay{})

	if err := svc.End(context.Background(), studentId, session.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
	if session.Status != constant.SessionStatusLive {
		t.Error("session must stay live after a forbidden end")
	}
}

func TestLiveSessionsByClass(t *testing.T) {
	repo := newFakeRepo()
	class, _, _ := seedClass(repo)
	live := seedLiveSession(repo, class.ID)
	ended := seedLiveSession(repo, class.ID)
	ended.Status = constant.SessionStatusEnded
	svc := newSessionService(repo, &fakeRelay{})

	snapshots, err := svc.LiveSessionsByClass(context.Background(), class.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshots) != 1 || snapshots[0].ID != live.ID {
		t.Errorf("expected only the live session, got %+v", snapshots)
	}
}

func TestSessionWithChatsNotFound(t *testing.T) {
	repo := newFakeRepo()
	svc := newSessionService(repo, &fakeRelay{})

	if _, _, err := svc.SessionWithChats(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
