package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"aparca/internal/db"
	"aparca/internal/entities"
)

type lotGetter interface {
	GetByID(ctx context.Context, id int) (*db.ParkingLot, error)
}

// SenderService delivers reservation status notifications over email and
// SMS. Sends run in the background and failures are only logged; a
// notification must never fail the operation that triggered it.
type SenderService struct {
	Lots lotGetter
}

func NewSenderService(lots lotGetter) *SenderService {
	return &SenderService{Lots: lots}
}

func (s *SenderService) ReservationStatus(res *db.Reservation, status string) {
	limaLoc, err := time.LoadLocation("America/Lima")
	if err != nil {
		limaLoc = time.FixedZone("PET", -5*60*60)
	}

	data := entities.ReservationEmailData{
		UserEmail:          res.UserEmail,
		UserPhone:          res.UserPhone,
		ReservationCode:    res.Code,
		LotName:            s.lotName(res.LotID),
		StartTimeFormatted: res.StartTime.In(limaLoc).Format("02 Jan 2006 15:04 MST"),
		EndTimeFormatted:   res.EndTime.In(limaLoc).Format("02 Jan 2006 15:04 MST"),
		Status:             status,
	}

	go s.sendEmail(data)
	go s.sendSMS(data)
}

func (s *SenderService) sendEmail(data entities.ReservationEmailData) {
	if data.UserEmail == "" {
		return
	}
	subject := fmt.Sprintf("Your Aparca reservation is %s - Code: %s", data.Status, data.ReservationCode)
	plainBody := fmt.Sprintf(
		"Hello,\n\nYour reservation at %s is %s.\n\n"+
			"Reservation Details:\n"+
			"Reservation Code: %s\n"+
			"Check-in: %s\n"+
			"Check-out: %s\n\n"+
			"Thank you for choosing Aparca.",
		data.LotName, data.Status, data.ReservationCode,
		data.StartTimeFormatted, data.EndTimeFormatted,
	)
	if err := SendEmailWithSendGrid(data.UserEmail, subject, plainBody, ""); err != nil {
		log.Printf("reservation %s: email notification failed: %v", data.ReservationCode, err)
	}
}

func (s *SenderService) sendSMS(data entities.ReservationEmailData) {
	if data.UserPhone == "" {
		return
	}
	body := fmt.Sprintf("Aparca: reservation %s at %s is %s.\nCheck-in: %s.\nMore details in your email.",
		data.ReservationCode, data.LotName, data.Status, data.StartTimeFormatted)
	if err := SendSMS(data.UserPhone, body); err != nil {
		log.Printf("reservation %s: sms notification failed: %v", data.ReservationCode, err)
	}
}

func (s *SenderService) lotName(lotID int) string {
	if s.Lots == nil {
		return "your parking lot"
	}
	lot, err := s.Lots.GetByID(context.Background(), lotID)
	if err != nil {
		log.Printf("lot %d: name lookup for notification failed: %v", lotID, err)
		return "your parking lot"
	}
	return lot.Name
}
