// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

// Package authz decides which channel actions a member's role permits.
//
// Roles are hierarchical and evaluated with Casbin:
//
//	owner -> admin -> member
//
// The model and policy are embedded (model.conf, policy.csv). An operator
// may override the policy file through EnforcerConfig.PolicyPath, for
// example to let members pin messages.
//
// # Actions
//
//	member: read, send, react
//	admin:  addMembers, removeMember, freeze, truncate, ban, pin,
//	        deleteAny, slowMode
//	owner:  deleteChannel, updateRole
//
// # Usage
//
//	enforcer, err := authz.NewEnforcer(nil)
//	if err != nil {
//	    return err
//	}
//	if !enforcer.Can(member.Role, authz.ActionPin) {
//	    return models.PermissionDenied(string(authz.ActionPin))
//	}
package authz
