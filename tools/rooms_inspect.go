package main

import (
	"collab-lab/domain"
	"collab-lab/internal"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

func main() {
	url := flag.String("url", "http://localhost:3001/debug/rooms", "Rooms debug endpoint")
	timeout := flag.Duration("timeout", 5*time.Second, "Request timeout")
	flag.Parse()

	page, err := fetchRooms(&http.Client{Timeout: *timeout}, *url)
	if err != nil {
		log.Fatal("Error while fetching rooms: ", err)
	}
	renderRooms(os.Stdout, page)
}

func fetchRooms(client *http.Client, url string) (internal.RoomsPage, error) {
	var page internal.RoomsPage
	resp, err := client.Get(url)
	if err != nil {
		return page, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return page, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return page, fmt.Errorf("invalid rooms page: %w", err)
	}
	return page, nil
}

func renderRooms(w io.Writer, page internal.RoomsPage) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Room", "Members", "Created", "Empty since"})
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

	for _, room := range page.Rooms {
		members := lo.Map(room.Members, func(m domain.MemberID, _ int) string { return string(m) })
		emptySince := "-"
		if room.EmptySince != nil {
			emptySince = room.EmptySince.Format(time.TimeOnly)
		}
		table.Append([]string{
			string(room.ID),
			strings.Join(members, ", "),
			room.CreatedAt.Format(time.TimeOnly),
			emptySince,
		})
	}
	table.Render()
	fmt.Fprintf(w, "\n%d room(s) at %s\n", page.Count, page.At.Format(time.RFC3339))
}
