package models

// Role is a user's job function within an organization.
type Role string

const (
	RoleProjectManager Role = "project_manager"
	RoleForeman        Role = "foreman"
	RoleFieldWorker    Role = "field_worker"
	RoleSafetyManager  Role = "safety_manager"
	RoleExecutive      Role = "executive"
)

// Roles lists every valid role.
var Roles = []Role{
	RoleProjectManager,
	RoleForeman,
	RoleFieldWorker,
	RoleSafetyManager,
	RoleExecutive,
}

func (r Role) Valid() bool {
	for _, candidate := range Roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// Permission names an action guarded by role.
type Permission string

const (
	PermManageProjects     Permission = "manage_projects"
	PermManageTasks        Permission = "manage_tasks"
	PermUpdateOwnTask      Permission = "update_own_task"
	PermManageSafety       Permission = "manage_safety"
	PermReportSafety       Permission = "report_safety"
	PermUploadVideo        Permission = "upload_video"
	PermReviewVideo        Permission = "review_video"
	PermManageTeam         Permission = "manage_team"
	PermManageIntegrations Permission = "manage_integrations"
	PermViewAnalytics      Permission = "view_analytics"
)

var rolePermissions = map[Role][]Permission{
	RoleProjectManager: {
		PermManageProjects, PermManageTasks, PermUpdateOwnTask, PermManageSafety, PermReportSafety,
		PermUploadVideo, PermReviewVideo, PermManageTeam, PermManageIntegrations, PermViewAnalytics,
	},
	RoleForeman: {
		PermManageTasks, PermUpdateOwnTask, PermManageSafety, PermReportSafety, PermUploadVideo, PermReviewVideo,
	},
	RoleFieldWorker: {
		PermUpdateOwnTask, PermReportSafety, PermUploadVideo,
	},
	RoleSafetyManager: {
		PermManageSafety, PermReportSafety, PermUploadVideo, PermViewAnalytics,
	},
	RoleExecutive: {
		PermManageProjects, PermManageTasks, PermUpdateOwnTask, PermManageSafety, PermReportSafety,
		PermUploadVideo, PermReviewVideo, PermManageTeam, PermManageIntegrations, PermViewAnalytics,
	},
}

// Can reports whether the role grants the permission.
func (r Role) Can(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

// SeesAllProjects reports whether the role has organization-wide project visibility.
// Other roles only see projects they are members of.
func (r Role) SeesAllProjects() bool {
	switch r {
	case RoleExecutive, RoleProjectManager, RoleSafetyManager:
		return true
	default:
		return false
	}
}
