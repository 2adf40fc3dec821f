package command

import (
	"github.com/bwmarrin/discordgo"
)

// permissionBits maps permission names to permission bits.
var permissionBits = map[string]int64{
	"create_instant_invite": discordgo.PermissionCreateInstantInvite,
	"kick_members":          discordgo.PermissionKickMembers,
	"ban_members":           discordgo.PermissionBanMembers,
	"administrator":         discordgo.PermissionAdministrator,
	"manage_channels":       discordgo.PermissionManageChannels,
	"manage_guild":          discordgo.PermissionManageServer,
	"add_reactions":         discordgo.PermissionAddReactions,
	"view_audit_log":        discordgo.PermissionViewAuditLogs,
	"view_channel":          discordgo.PermissionViewChannel,
	"read_messages":         discordgo.PermissionViewChannel,
	"send_messages":         discordgo.PermissionSendMessages,
	"send_tts_messages":     discordgo.PermissionSendTTSMessages,
	"manage_messages":       discordgo.PermissionManageMessages,
	"embed_links":           discordgo.PermissionEmbedLinks,
	"attach_files":          discordgo.PermissionAttachFiles,
	"read_message_history":  discordgo.PermissionReadMessageHistory,
	"mention_everyone":      discordgo.PermissionMentionEveryone,
	"change_nickname":       discordgo.PermissionChangeNickname,
	"manage_nicknames":      discordgo.PermissionManageNicknames,
	"manage_roles":          discordgo.PermissionManageRoles,
	"manage_webhooks":       discordgo.PermissionManageWebhooks,
	"manage_threads":        discordgo.PermissionManageThreads,
	"moderate_members":      discordgo.PermissionModerateMembers,
}

// KnownPermission reports whether name is a permission name.
func KnownPermission(name string) bool {
	_, ok := permissionBits[name]
	return ok
}

// LackingPermissions returns the names in perms which the permission bits
// have do not grant, in the order given. Administrator grants everything.
func LackingPermissions(have int64, perms []string) []string {
	if have&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	var r []string
	for _, p := range perms {
		bit, ok := permissionBits[p]
		if !ok || have&bit != bit {
			r = append(r, p)
		}
	}
	return r
}
