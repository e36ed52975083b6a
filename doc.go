// Package burnstone is a CPU stability and stress-testing engine. It
// drives individual processor cores, or all cores at once, into
// sustained SIMD-shaped compute and watches the arithmetic for the
// corruption that thermal, voltage or overclock instability produces.
//
// A run picks a workload kernel (compute-hot FMA chains, streaming
// loads/stores, mixed integer/float, shuffle/permute, mask/predicate,
// polynomial transcendental, or a pointer-chase latency probe), pins
// one worker thread per logical processor under test, and validates
// the kernel's accumulators as it loops. Detected corruption is
// counted and reported as progress events; the run keeps going, since
// a faulting core is exactly the signal being collected.
//
// Example usage:
//
//	engine := burnstone.NewEngine()
//	events, cancel := engine.Events().Subscribe()
//	defer cancel()
//
//	cfg := burnstone.RunConfig{Algorithm: burnstone.AlgoFMA, CycleSeconds: 60}
//	if err := engine.StartAll(cfg); err != nil {
//		log.Fatal(err)
//	}
//	for ev := range events {
//		fmt.Println(ev.Status)
//		if !ev.Running {
//			break
//		}
//	}
//	if engine.ErrorCount() > 0 {
//		fmt.Println("unstable: computation errors detected")
//	}
package burnstone
