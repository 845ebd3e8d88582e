// Command client is an interactive CLI for querying the price-comparison
// cluster: it discovers the current leader, then asks it to compare
// vehicle listings between two cities.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pricecache/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "client",
		Short: "Interactive client for the price-comparison cluster",
		RunE:  runInteractive,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file overriding cluster defaults")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type leaderResponse struct {
	LeaderID int `json:"leader_id"`
	ThisNode int `json:"this_node"`
}

type cityResult struct {
	City    string
	Found   bool
	Listing struct {
		Year     int
		Make     string
		Model    string
		Price    float64
		Mileage  float64
		Location string
	}
}

type compareResponse struct {
	LeaderID    int                `json:"leader_id"`
	City1       cityResult         `json:"city1"`
	City2       cityResult         `json:"city2"`
	CheaperCity string             `json:"cheaper_city"`
	PriceRatios map[string]float64 `json:"price_per_mile"`
	BetterValue string             `json:"better_value_city"`
	Error       string             `json:"error"`
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

// discoverCurrentLeader polls every node's /leader endpoint until one
// reports a leader id, then confirms that leader is actually reachable,
// mirroring the original discover_current_leader loop.
func discoverCurrentLeader(nodes map[int]string) (int, string, bool) {
	for _, addr := range nodes {
		resp, err := httpClient.Get(fmt.Sprintf("http://%s/leader", addr))
		if err != nil {
			continue
		}
		var body leaderResponse
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil || body.LeaderID < 0 {
			continue
		}

		leaderAddr, ok := nodes[body.LeaderID]
		if !ok {
			continue
		}
		health, err := httpClient.Get(fmt.Sprintf("http://%s/health", leaderAddr))
		if err != nil {
			continue
		}
		health.Body.Close()
		if health.StatusCode == http.StatusOK {
			fmt.Printf("[Client] Communicating with leader node %d at %s.\n", body.LeaderID, leaderAddr)
			return body.LeaderID, leaderAddr, true
		}
	}
	fmt.Println("[Client] No leader found.")
	return 0, "", false
}

func runCompare(leaderAddr, country, city1, city2, make_, model string) (*compareResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"country": country, "city1": city1, "city2": city2, "make": make_, "model": model,
	})
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Post(fmt.Sprintf("http://%s/compare", leaderAddr), "application/json", strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("contact leader: %w", err)
	}
	defer resp.Body.Close()

	var out compareResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode leader response: %w", err)
	}
	return &out, nil
}

func printCheapest(result *compareResponse) {
	if result.Error != "" {
		fmt.Printf("[Client] Error: %s. Leader is Node %d\n", result.Error, result.LeaderID)
		return
	}
	fmt.Printf("[Client] Cheapest cars found by leader Node %d:\n", result.LeaderID)
	printCity(result.City1)
	printCity(result.City2)
	if result.CheaperCity != "" {
		fmt.Printf("[Client] Recommended purchase location: %s\n", result.CheaperCity)
	}
}

func printCity(c cityResult) {
	if !c.Found {
		fmt.Printf("  %s: no cars found\n", c.City)
		return
	}
	title := strings.TrimSpace(fmt.Sprintf("%d %s %s", c.Listing.Year, c.Listing.Make, c.Listing.Model))
	if title == "0" {
		title = "No title"
	}
	fmt.Printf("  %s: $%.2f - %s\n", c.City, c.Listing.Price, title)
}

func printArbitrage(result *compareResponse) {
	if result.Error != "" {
		fmt.Printf("[Client] Error: %s. Leader is Node %d\n", result.Error, result.LeaderID)
		return
	}
	if len(result.PriceRatios) != 2 {
		fmt.Println("[Client] Not enough data to compute arbitrage.")
		return
	}
	fmt.Println("[Client] Arbitrage ratios (price per mile):")
	for city, ratio := range result.PriceRatios {
		fmt.Printf("  %s: $%.4f per mile\n", city, ratio)
	}
	if result.BetterValue != "" {
		fmt.Printf("[Client] Recommended purchase location based on arbitrage: %s\n", result.BetterValue)
	}
}

func prompt(scanner *bufio.Scanner, label string) string {
	fmt.Print(label)
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Each node serves /leader, /health and /compare one port above its
	// raft address in the cluster table.
	apiNodes := make(map[int]string, len(cfg.Cluster.Nodes))
	for id, addr := range cfg.Cluster.Nodes {
		host, portStr, splitErr := net.SplitHostPort(addr)
		port, atoiErr := strconv.Atoi(portStr)
		if splitErr != nil || atoiErr != nil {
			apiNodes[id] = addr
			continue
		}
		apiNodes[id] = net.JoinHostPort(host, strconv.Itoa(port+1))
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		_, leaderAddr, ok := discoverCurrentLeader(apiNodes)
		if !ok {
			break
		}

		fmt.Println("\nChoose an option:")
		fmt.Println("1. Cheapest vehicle comparison")
		fmt.Println("2. Best arbitrage deal (price per mile)")
		choice := prompt(scanner, "Enter 1 or 2: ")

		country := prompt(scanner, "Enter country (e.g., CA): ")
		city1 := prompt(scanner, "Enter first city: ")
		city2 := prompt(scanner, "Enter second city: ")
		make_ := prompt(scanner, "Enter car make (e.g., Toyota): ")
		model := prompt(scanner, "Enter car model (e.g., Corolla): ")

		result, err := runCompare(leaderAddr, country, city1, city2, make_, model)
		if err != nil {
			fmt.Printf("[Client] Failed to contact leader: %v\n", err)
		} else {
			switch choice {
			case "1":
				printCheapest(result)
			case "2":
				printArbitrage(result)
			default:
				fmt.Println("Invalid choice.")
			}
		}

		again := prompt(scanner, "\nWould you like to search again? (y/n): ")
		if strings.ToLower(again) != "y" {
			break
		}
	}
	return nil
}
