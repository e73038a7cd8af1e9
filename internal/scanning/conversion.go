package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// receiptScanPrompt is the shared prompt used by all LLM providers for scanning receipts
const receiptScanPrompt = `You are reading a receipt or invoice attached to an employee expense report. Carefully read all text in the image and extract:

1. **name**: the merchant or business name followed by a short description, e.g. "SNCF - Paris Lyon" or "Brasserie Lipp - déjeuner client".
2. **type**: the expense category, exactly one of: "Transports", "Restaurants et bars", "Hôtel et logement", "Services en ligne", "IT et électronique", "Equipement et matériel", "Fournitures de bureau".
3. **date**: the transaction date in YYYY-MM-DD format. European receipts usually print DD/MM/YYYY.
4. **amount**: the total including taxes (TTC), as a number.
5. **vat**: the VAT (TVA) amount, as a number.

Return ONLY valid JSON in this exact format:
{
  "name": "Merchant - Description",
  "type": "Restaurants et bars",
  "date": "YYYY-MM-DD",
  "amount": 0.00,
  "vat": 0.00
}

Important:
- Use null for any field you cannot find
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// pdfToImage renders the first page of a PDF as PNG
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	// Most receipts are a single page
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// imageToPNG converts any supported image format to PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	// Go's standard image package does not decode HEIC (iPhone photos)
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") {
				return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC-related brand
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// NeedsNormalization reports whether a receipt must be converted before a browser can display it
func NeedsNormalization(data []byte, contentType string) bool {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	return mimeType == "application/pdf" || isHEICFormat(data) || isHEICMimeType(mimeType)
}

// NormalizeReceipt converts PDF and HEIC/HEIF receipts to PNG.
// JPEG and PNG receipts are returned unchanged.
// Returns the data, its content type and whether a conversion happened.
func NormalizeReceipt(data []byte, contentType string) ([]byte, string, bool, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if !NeedsNormalization(data, mimeType) {
		return data, mimeType, false, nil
	}

	var (
		pngData []byte
		err     error
	)
	if mimeType == "application/pdf" {
		pngData, err = pdfToImage(data)
		if err != nil {
			return nil, "", false, fmt.Errorf("converting PDF to image: %w", err)
		}
	} else {
		pngData, err = imageToPNG(data, mimeType)
		if err != nil {
			return nil, "", false, fmt.Errorf("converting image to PNG: %w", err)
		}
	}
	return pngData, "image/png", true, nil
}

// prepareImageData turns any receipt into PNG for the scanning models
func prepareImageData(imageData []byte, contentType string) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	if NeedsNormalization(imageData, mimeType) {
		data, _, _, err := NormalizeReceipt(imageData, mimeType)
		return data, err
	}
	if mimeType == "image/png" {
		return imageData, nil
	}
	data, err := imageToPNG(imageData, mimeType)
	if err != nil {
		return nil, fmt.Errorf("converting image to PNG: %w", err)
	}
	return data, nil
}
