// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

// Package services adapts long-running components to suture.Service.
//
// Each wrapper translates a component's own lifecycle (Start/Stop,
// ListenAndServe/Shutdown) into a Serve(ctx) that blocks until ctx is
// cancelled and returns only after the component has stopped.
package services
