package boot

import (
	"context"
	"log"
	"ticketflow/src/common"
	"ticketflow/src/config"
	"ticketflow/src/db"
	"ticketflow/src/lib"
	"ticketflow/src/models"
)

func InitDb() error {
	conn := db.GetDb()
	err := conn.AutoMigrate(
		&models.Event{},
		&models.Sale{},
		&models.Ticket{},
	)
	if err != nil {
		log.Printf("Error running migrations: %s\n", err.Error())
		return err
	}
	return nil
}

// InitScheduler starts the pending sale expiry sweep. With no expiry age
// configured the scheduler is left alone.
func InitScheduler() error {
	age := config.SaleExpiryAge()
	if age <= 0 {
		log.Println("Sale expiry sweep disabled")
		return nil
	}
	sched, err := lib.GetScheduler()
	if err != nil {
		return err
	}
	_, err = lib.CreateCronJob(func() {
		if _, err := common.ExpireStaleSales(context.Background(), age); err != nil {
			log.Printf("Expiry sweep failed: %s\n", err.Error())
		}
	}, age/4)
	if err != nil {
		return err
	}
	sched.Start()
	return nil
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Error shutting down scheduler: %s\n", err.Error())
	}
}
