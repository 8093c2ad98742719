package main

import (
	"devmatch/domain"
	"devmatch/repositories"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	a := flag.String("a", "", "First identity of the conversation, empty for every conversation")
	b := flag.String("b", "", "Second identity of the conversation")
	flag.Parse()

	prefix := repositories.MessagePrefix
	if *a != "" && *b != "" {
		prefix += domain.NewPair(*a, *b).StorageKey() + ":"
	}

	// The server may hold the lock
	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Created At", "ID", "Sender", "Receiver", "Body"})
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

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				message, err := repositories.DecodeMessage(v)
				if err != nil {
					// Keep going, one broken record must not hide the others
					color.Red.Printf("Error decoding key %s: %v\n", string(item.Key()), err)
					return nil
				}

				// First 8 characters of the ID are enough to tell messages apart
				displayID := message.ID.String()[:8]
				table.Append([]string{
					message.CreatedAt.Format(time.DateTime),
					displayID,
					color.Cyan.Sprint(message.SenderID),
					color.Green.Sprint(message.ReceiverID),
					message.Body,
				})
				count++
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
	fmt.Println(color.Bold.Sprint(strconv.Itoa(count) + " message(s)"))
}
