package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	httpclient "github.com/iand675/http-client"
)

func main() {
	target := flag.String("url", "https://example.com/", "URL to request")
	method := flag.String("method", "GET", "HTTP method")
	timeout := flag.Duration("timeout", 10*time.Second, "overall request timeout")
	flag.Parse()

	u, err := url.Parse(*target)
	if err != nil {
		log.Fatalf("httpcli: invalid url: %v", err)
	}
	port := portFor(u)

	req := httpclient.NewRequest(*method, u.Hostname(), port, u.Path)
	req.Secure = u.Scheme == "https"
	req.QueryString = u.RawQuery
	req.Header.Set("Accept", "*/*")

	settings := httpclient.DefaultManagerSettings()
	mgr := httpclient.NewManager(settings, nil, nil)
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := mgr.Perform(ctx, req)
	if err != nil {
		log.Fatalf("httpcli: %v", err)
	}
	defer resp.Close()

	fmt.Println(resp.Status)
	for name, values := range resp.Header {
		for _, v := range values {
			fmt.Printf("%s: %s\n", name, v)
		}
	}
	fmt.Println()

	for {
		chunk, err := resp.Body()
		if err != nil {
			log.Fatalf("httpcli: reading body: %v", err)
		}
		if len(chunk) == 0 {
			break
		}
		fmt.Print(string(chunk))
	}
}

func portFor(u *url.URL) int {
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err == nil {
			return n
		}
	}
	if u.Scheme == "https" {
		return 443
	}
	return 80
}
