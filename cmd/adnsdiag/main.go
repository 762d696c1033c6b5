// Command adnsdiag submits every diagnostic RR type against one or more
// domains and reports each answer's status, in the spirit of dtest.c:
// a smoke test for a resolver configuration rather than a day-to-day
// query tool (see adnsq for that).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nandub/adns/internal/config"
	"github.com/nandub/adns/internal/logging"

	"github.com/nandub/adns"
)

var defaultTypes = []adns.RRType{
	adns.RRTypeA,
	adns.RRTypeNSRaw,
	adns.RRTypeCNAME,
	adns.RRTypePTRRaw,
	adns.RRTypeMXRaw,
	adns.RRTypeTXT,
	adns.RRTypeRPRaw,
	adns.RRTypeADDR,
	adns.RRTypeNS,
	adns.RRTypeMX,
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		timeout    = flag.Duration("timeout", 10*time.Second, "overall deadline for all queries")
	)
	flag.Parse()

	domains := flag.Args()
	if len(domains) == 0 {
		domains = []string{"localhost"}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "adnsdiag: %v\n", err)
		os.Exit(3)
	}

	h, err := adns.Init(adns.Config{
		Servers:    cfg.Servers,
		NDots:      cfg.NDots,
		UDPRetries: cfg.UDPRetries,
		Logger:     logging.Configure(logging.Config{Level: cfg.Logging.Level}),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "adnsdiag: init: %v\n", err)
		os.Exit(2)
	}
	defer h.Close()

	type pending struct {
		domain string
		rrtype adns.RRType
		qu     *adns.Query
	}
	var all []pending

	for _, domain := range domains {
		for _, rrtype := range defaultTypes {
			qu, err := h.Submit(domain, rrtype, 0)
			if err != nil {
				fmt.Printf("%s type %s: submit failed: %v\n", domain, rrtype, err)
				continue
			}
			fmt.Printf("%s type %s submitted\n", domain, rrtype)
			all = append(all, pending{domain, rrtype, qu})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	exit := 0
	for _, p := range all {
		ans, err := h.Wait(ctx, p.qu)
		if err != nil {
			fmt.Printf("%s type %s: wait failed: %v\n", p.domain, p.rrtype, err)
			exit = 2
			continue
		}
		cname := "$"
		if ans.CNAME != "" {
			cname = ans.CNAME
		}
		fmt.Printf("%s type %s: %s; addrs=%d names=%d cname=%s\n",
			p.domain, p.rrtype, ans.Status.Description(), len(ans.Addrs), len(ans.Names), cname)
		if ans.Status != adns.StatusOK && ans.Status != adns.StatusNoData {
			exit = 1
		}
	}
	os.Exit(exit)
}
