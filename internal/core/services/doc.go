// Package services implements the driving port interfaces.
// Services contain the core business logic of the classification and
// routing pipeline and orchestrate calls to driven ports (adapters).
//
// Control flow for one notification:
//
//	Dispatcher.Receive → ValidateChannel → (enqueue)
//	Dispatcher.Start → ChangeFeedConsumer.Drain → for each eligible change:
//	    ContentExtractor.Extract → Classifier.Classify → Router.Route
//
// Services depend only on domain, ports and the logger.
package services
