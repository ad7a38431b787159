// Package testutil provides testing utilities for adapter tests.
//
// # Overview
//
// The testutil package contains mock implementations and helper
// functions for testing the adapter core and SUT handlers without a
// real AMP broker or a real system under test. All utilities are
// thread-safe and free of SUT-specific knowledge.
//
// # Core Components
//
// Mock Implementations:
//
// MockConnection - In-memory broker.Connection:
//   - Records every frame sent, in order
//   - Test-side session control: Open, Drop, Deliver
//   - Scriptable connect failures via FailConnects
//   - Records close reasons for verification
//
// RecordingHandler - Scriptable adapter.Handler:
//   - Records every call with ordered call log
//   - Error injection via exported Func fields
//   - Captures the bound Responder
//   - Configurable label catalogue and default configuration
//
// Test Helpers:
//
//   - WaitFor: polls a condition with timeout
//   - WaitForFrames: waits for N sent frames
//   - WaitForState: waits for a session state
//   - SentMessages: decodes all sent frames
//
// # Usage Examples
//
// Driving a session from the broker side:
//
//	func TestHandshake(t *testing.T) {
//	    conn := testutil.NewMockConnection()
//	    handler := testutil.NewRecordingHandler()
//	    core, err := adapter.New(adapter.Deps{
//	        Name:       "Matrix@test",
//	        Connection: conn,
//	        Handler:    handler,
//	    })
//	    require.NoError(t, err)
//	    require.NoError(t, core.Initialize())
//	    require.NoError(t, core.Start(context.Background()))
//	    defer core.Stop(time.Second)
//
//	    // Establish the session; the core announces itself.
//	    testutil.WaitFor(t, time.Second, "connect attempt", func() bool {
//	        return conn.ConnectCalls() > 0
//	    })
//	    conn.Open()
//	    testutil.WaitForState(t, core, adapter.StateAnnounced, time.Second)
//
//	    // Deliver a configuration like the broker would.
//	    data, _ := protocol.Encode(protocol.NewConfigurationMessage(cfg))
//	    conn.Deliver(data)
//	    testutil.WaitForState(t, core, adapter.StateConfigured, time.Second)
//	}
//
// Injecting a handler failure:
//
//	handler.StimulateFunc = func(protocol.Label) error {
//	    return fmt.Errorf("relay stuck")
//	}
//
// # Thread Safety
//
// All mock types guard their state with a mutex and invoke callbacks
// outside the lock, so code under test may call back into a mock from
// inside a callback without deadlocking.
//
// WaitFor polls at 10ms intervals, which adds latency to each wait.
// Prefer direct assertions where the outcome is synchronous.
package testutil
