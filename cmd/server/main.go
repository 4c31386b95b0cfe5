// Command server runs the catalog API and its offline export tool.
//
// Usage:
//
//	# Start the HTTP API
//	server serve
//
//	# Write every product to a zstd-compressed file
//	server export products --limit 100000 --out products.json --compress zstd
//
//	# Export the first page of one company's products to stdout
//	server export products --company 3
//
// Configuration comes from the environment, a .env file in the working
// directory and the optional YAML file named by --config or CONFIG_FILE.
package main

func main() {
	Execute()
}
