package service

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCompleteTaskAwardsOnce(t *testing.T) {
	db := newTestDB(t)
	contest := newContestService(t, db)
	tasks := newTaskService(t, db, 0)

	participant := mustRegister(t, contest, 100, "").Participant

	first, err := tasks.CompleteTask(testCommunityID, participant.ExternalUserID, time.Time{})
	if err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if !first.Awarded || first.Points != 3 {
		t.Fatalf("first completion = %+v, want awarded with 3 points", first)
	}

	second, err := tasks.CompleteTask(testCommunityID, participant.ExternalUserID, time.Time{})
	if err != nil {
		t.Fatalf("second completion: %v", err)
	}
	if second.Awarded {
		t.Fatal("task awarded twice")
	}
	if second.Points != 3 {
		t.Fatalf("points after duplicate completion = %d, want 3", second.Points)
	}
}

func TestCompleteTaskTooSoon(t *testing.T) {
	db := newTestDB(t)
	contest := newContestService(t, db)
	tasks := newTaskService(t, db, 30)

	participant := mustRegister(t, contest, 100, "").Participant

	_, err := tasks.CompleteTask(testCommunityID, participant.ExternalUserID, time.Now())
	if !errors.Is(err, ErrTooSoon) {
		t.Fatalf("err = %v, want ErrTooSoon", err)
	}
	if reloadParticipant(t, db, participant.ID).TaskCompleted {
		t.Fatal("rejected submission must not mark task completed")
	}

	result, err := tasks.CompleteTask(testCommunityID, participant.ExternalUserID, time.Now().Add(-31*time.Second))
	if err != nil {
		t.Fatalf("delayed completion: %v", err)
	}
	if !result.Awarded {
		t.Fatal("submission past the gate must be awarded")
	}
}

func TestCompleteTaskConcurrent(t *testing.T) {
	db := newTestDB(t)
	contest := newContestService(t, db)
	tasks := newTaskService(t, db, 0)

	participant := mustRegister(t, contest, 100, "").Participant

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	awardedCount := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := tasks.CompleteTask(testCommunityID, participant.ExternalUserID, time.Time{})
			if err != nil {
				t.Errorf("concurrent completion: %v", err)
				return
			}
			if result.Awarded {
				mu.Lock()
				awardedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if awardedCount != 1 {
		t.Fatalf("awarded %d times, want exactly 1", awardedCount)
	}
	final := reloadParticipant(t, db, participant.ID)
	if final.Points != 3 {
		t.Fatalf("final points = %d, want 3", final.Points)
	}
	if !final.TaskCompleted {
		t.Fatal("task not marked completed")
	}
}

func TestCompleteTaskUnknownOrDeparted(t *testing.T) {
	db := newTestDB(t)
	contest := newContestService(t, db)
	tasks := newTaskService(t, db, 0)

	if _, err := tasks.CompleteTask(testCommunityID, 404, time.Time{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown participant err = %v, want ErrNotFound", err)
	}

	participant := mustRegister(t, contest, 100, "").Participant
	if _, err := contest.HandleDeparture(testCommunityID, participant.ExternalUserID); err != nil {
		t.Fatalf("departure: %v", err)
	}
	if _, err := tasks.CompleteTask(testCommunityID, participant.ExternalUserID, time.Time{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("departed participant err = %v, want ErrNotFound", err)
	}
}
