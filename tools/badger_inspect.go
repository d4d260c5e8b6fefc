// Command badger_inspect dumps a parley badger database as a table, one row
// per record under the given key prefix. Useful to eyeball what a persistent
// deployment actually stored (users, chats, messages).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// record is the loose shape shared by every stored entity; only the fields
// present in the value get rendered.
type record struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	prefix := flag.String("prefix", "user:", "Key prefix to scan (user:, chat:, msg:)")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("a -db path is required; the server's in-memory mode leaves nothing to inspect")
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "ID", "Kind", "Name/Handle", "Sender", "Content", "Created"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Secondary indexes point at primary keys and carry no JSON.
			if strings.HasPrefix(key, "handle:") ||
				strings.HasPrefix(key, "email:") ||
				strings.HasPrefix(key, "pair:") ||
				strings.HasPrefix(key, "member:") ||
				strings.HasPrefix(key, "msgcount:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				var r record
				if err := json.Unmarshal(v, &r); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
					return nil
				}

				name := r.Name
				if name == "" {
					name = r.Handle
				}
				content := r.Content
				if len(content) > 48 {
					content = content[:48] + "..."
				}
				displayID := r.ID
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}

				table.Append([]string{
					key,
					displayID,
					r.Kind,
					name,
					r.SenderID,
					content,
					r.CreatedAt.Format("2006-01-02 15:04:05"),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}
