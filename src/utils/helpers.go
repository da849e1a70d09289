package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"ticketflow/src/lib/aws"

	"github.com/yeqown/go-qrcode"
)

// TicketQRDocument renders a ticket code as a QR image on disk and
// returns the file path. The code itself is the payload; scanners post
// it back as-is.
func TicketQRDocument(code string) (string, error) {
	qrc, err := qrcode.New(code)
	if err != nil {
		log.Printf("Could not build QR for code [%s]: %s\n", code, err.Error())
		return "", err
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("%s.jpeg", code))
	if err := qrc.Save(path); err != nil {
		log.Printf("Could not save QR for code [%s]: %s\n", code, err.Error())
		return "", err
	}
	return path, nil
}

// UploadTicketQR pushes the rendered QR to the assets bucket and returns
// a presigned URL. The local file is removed afterwards.
func UploadTicketQR(code string) (*string, error) {
	path, err := TicketQRDocument(code)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)
	key := fmt.Sprintf("tickets/%s.jpeg", code)
	return aws.S3UploadAsset(key, path, "image/jpeg")
}
