// Command putsync reconciles Itsperfect inbound shipments (PUTs) with the
// receiving checklists the warehouse keeps in spreadsheets.
package main

func main() {
	Execute()
}
