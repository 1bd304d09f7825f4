package jobs

import (
	"log"
	"time"

	"companion-booking-server/services"
)

// SessionJob periodically flips accepted bookings whose scheduled start has
// passed into the active status, so chat reachability and payment actions
// line up with the real session without any client involvement.
type SessionJob struct {
	svc      *services.BookingService
	interval time.Duration
	stopChan chan bool
}

// NewSessionJob creates a new session job
func NewSessionJob(svc *services.BookingService) *SessionJob {
	return &SessionJob{
		svc:      svc,
		interval: 30 * time.Second,
		stopChan: make(chan bool),
	}
}

// Start begins the session job
func (j *SessionJob) Start() {
	go j.run()
	log.Println("Session job started")
}

// Stop stops the session job
func (j *SessionJob) Stop() {
	j.stopChan <- true
	log.Println("Session job stopped")
}

func (j *SessionJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.activateDue()
		case <-j.stopChan:
			return
		}
	}
}

func (j *SessionJob) activateDue() {
	activated, err := j.svc.ActivateDueBookings()
	if err != nil {
		log.Printf("Error activating due bookings: %v", err)
		return
	}
	if activated > 0 {
		log.Printf("Activated %d due bookings", activated)
	}
}
