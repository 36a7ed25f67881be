package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	branchIDs := seedBranches(db)
	farmerIDs := seedFarmers(db, branchIDs)
	seedRates(db, branchIDs)
	seedProducts(db, branchIDs)
	seedEntries(db, branchIDs, farmerIDs)
	seedSettings(db)

	log.Println("Seeding completed successfully!")
}

func seedBranches(db *sql.DB) map[string]int64 {
	branches := []struct {
		Name     string
		Location string
		Member   string
		Mobile   string
		Type     string
	}{
		{"Main Society", "Anand", "Ramanbhai Patel", "9876500001", "society"},
		{"North Collection Point", "Karamsad", "Jivanbhai Desai", "9876500002", "collection"},
		{"South Collection Point", "Vallabh Vidyanagar", "Maganbhai Solanki", "9876500003", "collection"},
	}

	fmt.Println("Seeding Branches...")
	ids := make(map[string]int64)
	for _, b := range branches {
		var id int64
		err := db.QueryRow(`
			SELECT id FROM branches WHERE name = $1;
		`, b.Name).Scan(&id)
		if err == sql.ErrNoRows {
			err = db.QueryRow(`
				INSERT INTO branches (name, location, member_name, member_mobile, type)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id;
			`, b.Name, b.Location, b.Member, b.Mobile, b.Type).Scan(&id)
		}
		if err != nil {
			log.Printf("Failed to seed branch %s: %v", b.Name, err)
			continue
		}
		ids[b.Name] = id
	}
	return ids
}

func seedFarmers(db *sql.DB, branchIDs map[string]int64) map[string]int64 {
	farmers := []struct {
		Branch   string
		Name     string
		MilkType string
		Phone    string
		Shift    string
		ManualID string
	}{
		{"Main Society", "Ramesh Chaudhary", "Cow", "9898100001", "Both", "F-001"},
		{"Main Society", "Sita Rabari", "Buffalo", "9898100002", "Both", "F-002"},
		{"Main Society", "Gopal Bharwad", "Cow", "9898100003", "Morning", "F-003"},
		{"Main Society", "Kanta Parmar", "Buffalo", "9898100004", "Evening", "F-004"},
		{"North Collection Point", "Bhikha Thakor", "Cow", "9898100005", "Both", "F-101"},
		{"North Collection Point", "Jashoda Makwana", "Buffalo", "9898100006", "Both", "F-102"},
		{"South Collection Point", "Vitthal Ahir", "Cow", "9898100007", "Both", "F-201"},
	}

	fmt.Println("Seeding Farmers...")
	ids := make(map[string]int64)
	for _, f := range farmers {
		branchID, ok := branchIDs[f.Branch]
		if !ok {
			log.Printf("Missing branch ID for %s", f.Branch)
			continue
		}
		var id int64
		err := db.QueryRow(`
			SELECT id FROM farmers WHERE branch_id = $1 AND name = $2;
		`, branchID, f.Name).Scan(&id)
		if err == sql.ErrNoRows {
			err = db.QueryRow(`
				INSERT INTO farmers (branch_id, name, milk_type, phone, shift, manual_id)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id;
			`, branchID, f.Name, f.MilkType, f.Phone, f.Shift, f.ManualID).Scan(&id)
		}
		if err != nil {
			log.Printf("Failed to seed farmer %s: %v", f.Name, err)
			continue
		}
		ids[f.Name] = id
	}
	return ids
}

func seedRates(db *sql.DB, branchIDs map[string]int64) {
	// Cow milk priced per total solids, buffalo per fat percentage.
	rates := []struct {
		Branch   string
		MilkType string
		Method   string
		Config   string
		Active   bool
	}{
		{"Main Society", "Cow", "TS", `{"tsTable":[{"minFat":3,"maxFat":6,"minSnf":7.5,"maxSnf":9.5,"fatRate":9.2}]}`, true},
		{"Main Society", "Buffalo", "TS", `{"tsTable":[{"minFat":5,"maxFat":10,"fatRate":11.5}]}`, true},
		{"Main Society", "Cow", "FAT", `{"fatTable":[{"fat":3.5,"rate":28.5},{"fat":4,"rate":31},{"fat":4.5,"rate":33.5}]}`, false},
		{"North Collection Point", "Cow", "TS_NEW", `{"tsNewTable":[{"tsFrom":10,"tsTo":16,"rate":10.4,"incentive":0.5}]}`, true},
		{"North Collection Point", "Buffalo", "FAT", `{"fatTable":[{"fat":6,"rate":52},{"fat":6.5,"rate":55},{"fat":7,"rate":58}]}`, true},
		{"South Collection Point", "Cow", "CHART", `{"chart":[{"fat":3.5,"snf":8.5,"rate":30},{"fat":4,"snf":8.5,"rate":33}]}`, true},
	}

	fmt.Println("Seeding Rates...")
	for _, r := range rates {
		branchID, ok := branchIDs[r.Branch]
		if !ok {
			log.Printf("Missing branch ID for %s", r.Branch)
			continue
		}
		_, err := db.Exec(`
			INSERT INTO rates (branch_id, milk_type, method, config, is_active)
			VALUES ($1, $2, $3, $4::jsonb, $5)
			ON CONFLICT (branch_id, milk_type, method) DO UPDATE SET
				config = EXCLUDED.config,
				is_active = EXCLUDED.is_active,
				updated_at = now();
		`, branchID, r.MilkType, r.Method, r.Config, r.Active)
		if err != nil {
			log.Printf("Failed to seed rate %s/%s/%s: %v", r.Branch, r.MilkType, r.Method, err)
		}
	}
}

func seedProducts(db *sql.DB, branchIDs map[string]int64) {
	products := []struct {
		Branch   string
		Name     string
		Price    float64
		Unit     string
		Category string
	}{
		{"Main Society", "Cattle Feed 50kg", 1450, "bag", "feed"},
		{"Main Society", "Mineral Mixture 1kg", 180, "packet", "feed"},
		{"Main Society", "Ghee 1L", 620, "jar", "dairy"},
		{"North Collection Point", "Cattle Feed 50kg", 1480, "bag", "feed"},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		branchID, ok := branchIDs[p.Branch]
		if !ok {
			log.Printf("Missing branch ID for %s", p.Branch)
			continue
		}
		var id int64
		err := db.QueryRow(`
			SELECT id FROM products WHERE branch_id = $1 AND name = $2;
		`, branchID, p.Name).Scan(&id)
		if err == sql.ErrNoRows {
			_, err = db.Exec(`
				INSERT INTO products (branch_id, name, price, unit, category)
				VALUES ($1, $2, $3, $4, $5);
			`, branchID, p.Name, p.Price, p.Unit, p.Category)
		}
		if err != nil && err != sql.ErrNoRows {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}
}

func seedEntries(db *sql.DB, branchIDs map[string]int64, farmerIDs map[string]int64) {
	today := time.Now().Format("2006-01-02")
	entries := []struct {
		Branch   string
		Farmer   string
		Shift    string
		MilkType string
		Quantity float64
		Fat      float64
		SNF      float64
		Rate     float64
		Amount   float64
	}{
		{"Main Society", "Ramesh Chaudhary", "Morning", "Cow", 8.5, 4.2, 8.6, 1.18, 10.03},
		{"Main Society", "Sita Rabari", "Morning", "Buffalo", 6.0, 7.1, 9.0, 0.82, 4.92},
		{"Main Society", "Gopal Bharwad", "Morning", "Cow", 5.5, 3.8, 8.4, 1.12, 6.16},
		{"Main Society", "Kanta Parmar", "Evening", "Buffalo", 7.2, 6.8, 9.1, 0.78, 5.62},
		{"North Collection Point", "Bhikha Thakor", "Morning", "Cow", 10.0, 4.0, 8.5, 1.30, 13.00},
	}

	fmt.Println("Seeding Entries...")
	for _, e := range entries {
		branchID, ok1 := branchIDs[e.Branch]
		farmerID, ok2 := farmerIDs[e.Farmer]
		if !ok1 || !ok2 {
			log.Printf("Missing IDs for entry %s/%s", e.Branch, e.Farmer)
			continue
		}
		var exists int64
		err := db.QueryRow(`
			SELECT id FROM entries
			WHERE branch_id = $1 AND farmer_id = $2 AND entry_date = $3 AND shift = $4;
		`, branchID, farmerID, today, e.Shift).Scan(&exists)
		if err == sql.ErrNoRows {
			_, err = db.Exec(`
				INSERT INTO entries (branch_id, farmer_id, entry_date, shift, milk_type, quantity, fat, snf, rate, amount)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
			`, branchID, farmerID, today, e.Shift, e.MilkType, e.Quantity, e.Fat, e.SNF, e.Rate, e.Amount)
		}
		if err != nil && err != sql.ErrNoRows {
			log.Printf("Failed to seed entry for %s: %v", e.Farmer, err)
		}
	}
}

func seedSettings(db *sql.DB) {
	fmt.Println("Seeding Settings...")
	_, err := db.Exec(`
		INSERT INTO settings (id, society_name, location, owner_mobile, language, owners)
		VALUES ('global', 'Shree Krishna Dugdh Mandali', 'Anand, Gujarat', '9876500001', 'en',
			'[{"name":"Ramanbhai Patel","mobile":"9876500001"}]'::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			society_name = EXCLUDED.society_name,
			location = EXCLUDED.location,
			owner_mobile = EXCLUDED.owner_mobile,
			owners = EXCLUDED.owners,
			updated_at = now();
	`)
	if err != nil {
		log.Printf("Failed to seed settings: %v", err)
	}
}
