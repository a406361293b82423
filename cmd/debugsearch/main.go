package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/webevidence/internal/app"
	"github.com/hyperifyio/webevidence/internal/search"
	"github.com/hyperifyio/webevidence/internal/telemetry"
)

// debugsearch issues one Google organic lookup through Bright Data and prints
// the parsed results. With -raw it also prints every raw proxy payload.
func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	depth := flag.Int("depth", 10, "Results to request (clamped to 1..30)")
	gl := flag.String("gl", "", "Google country hint")
	hl := flag.String("hl", "", "Google interface language hint")
	raw := flag.Bool("raw", false, "Print raw proxy payloads")
	flag.Parse()

	_ = app.LoadEnvFiles(".env")
	q := "What is love?"
	if flag.NArg() > 0 {
		q = strings.Join(flag.Args(), " ")
	}

	bd := search.NewBrightDataFromEnv()
	bd.Emitter = telemetry.LogEmitter{}
	if !bd.Enabled() {
		log.Warn().Msg("BRIGHTDATA_API_KEY or BRIGHTDATA_SERP_ZONE missing; expect no results")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	page, err := bd.FetchGoogleOrganic(ctx, search.Request{Query: q, Depth: *depth, GL: *gl, HL: *hl})
	fmt.Println("err:", err, "requests:", page.RequestCount)
	for i, r := range page.Results {
		fmt.Printf("%d. %s - %s\n", i+1, r.Title, r.URL)
	}
	if *raw {
		for i, p := range page.Raw {
			var v any
			if json.Unmarshal(p, &v) == nil {
				if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
					p = pretty
				}
			}
			fmt.Printf("--- raw page %d ---\n%s\n", i+1, p)
		}
	}
}
