// Command invoicectl runs migrations and the sweeper tasks against the configured database.
package main

func main() {
	Execute()
}
