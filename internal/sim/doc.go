// Package sim provides in-process implementations of the radio
// collaborator contracts: a GATT server whose central is driven
// programmatically, and a Wi-Fi station with a configurable network
// table. The reference binaries and the end-to-end tests run complete
// ceremonies against these without hardware.
package sim
