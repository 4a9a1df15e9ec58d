// Package csvexport выгружает заказы в CSV: заголовок без кавычек, каждое поле данных в кавычках.
package csvexport

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/linemk/print-orders/internal/domain/models"
)

var Header = []string{
	"id", "code", "name", "email", "phone", "details", "file_filename", "file_originalname", "createdAt",
}

// timeLayout - ISO 8601 с миллисекундами в UTC
const timeLayout = "2006-01-02T15:04:05.000Z"

// WriteOrders пишет заголовок и по строке на заказ. Строки разделяются \n, кавычки внутри значения удваиваются.
func WriteOrders(w io.Writer, orders []*models.Order) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(strings.Join(Header, ",") + "\n"); err != nil {
		return err
	}
	for _, o := range orders {
		if err := writeRow(bw, Row(o)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Row значения полей заказа в порядке Header
func Row(o *models.Order) []string {
	var filename, original string
	if o.File != nil {
		filename = o.File.Filename
		original = o.File.OriginalName
	}
	return []string{
		strconv.FormatInt(o.ID, 10),
		o.Code,
		o.Name,
		o.Email,
		o.Phone,
		o.Details,
		filename,
		original,
		o.CreatedAt.UTC().Format(timeLayout),
	}
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quote(f)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
