// Package resource provides process-wide budgets for memory, background
// concurrency and bulk IO.
//
// A single Controller is shared by the components that consume managed
// resources: block caches reserve memory before admitting entries,
// snapshot uploads take a background slot, and persistence streams wrap
// their readers and writers with Reader and Writer to stay inside the IO
// budget. A nil *Controller disables all enforcement, so wiring one in is
// always optional.
package resource
