package rbac

import "fmt"

// Role 系统角色（封闭枚举，不接受任意字符串）
type Role string

const (
	RoleUser     Role = "user"
	RoleEngineer Role = "engineer"
	RoleLogistic Role = "logistic"
	RoleAdmin    Role = "admin"
)

// ParseRole 解析角色字符串，未知角色报错（fail closed）
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleEngineer, RoleLogistic, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// Valid 角色是否为已知角色
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Action 命名能力
type Action string

const (
	ActionInventoryCreate       Action = "inventory.create"
	ActionInventoryRead         Action = "inventory.read"
	ActionInventoryUpdate       Action = "inventory.update"
	ActionInventorySendForTest  Action = "inventory.sendForTest"
	ActionInventoryUpdateStatus Action = "inventory.updateStatus"
	ActionInventoryDelete       Action = "inventory.delete"

	ActionWarrantyCreate Action = "warranty.create"
	ActionWarrantyRead   Action = "warranty.read"

	ActionTicketCreate  Action = "ticket.create"
	ActionTicketRead    Action = "ticket.read"
	ActionTicketUpdate  Action = "ticket.update"
	ActionTicketDelete  Action = "ticket.delete"
	ActionTicketComment Action = "ticket.comment"
	ActionTicketAttach  Action = "ticket.attach"

	ActionTestCreate    Action = "test.create"
	ActionTestRead      Action = "test.read"
	ActionTestUpdate    Action = "test.update"
	ActionTestDelete    Action = "test.delete"
	ActionTestAddResult Action = "test.addResult"

	ActionUserList       Action = "user.list"
	ActionUserChangeRole Action = "user.changeRole"
	ActionUserDelete     Action = "user.delete"

	ActionNotificationRead Action = "notification.read"

	ActionActivityLogRead Action = "activitylog.read"
)

// policy 静态授权策略。admin不出现在表里：对admin一律放行。
// ticket/test的所有权限制（user只能动自己的）由service层在此之外校验。
var policy = map[Action][]Role{
	ActionInventoryCreate:       {RoleLogistic},
	ActionInventoryRead:         {RoleUser, RoleEngineer, RoleLogistic},
	ActionInventoryUpdate:       {RoleLogistic},
	ActionInventorySendForTest:  {RoleLogistic},
	ActionInventoryUpdateStatus: {RoleEngineer},
	ActionInventoryDelete:       {},

	ActionWarrantyCreate: {RoleLogistic},
	ActionWarrantyRead:   {RoleUser, RoleEngineer, RoleLogistic},

	ActionTicketCreate:  {RoleUser, RoleEngineer, RoleLogistic},
	ActionTicketRead:    {RoleUser, RoleEngineer, RoleLogistic},
	ActionTicketUpdate:  {RoleUser, RoleEngineer, RoleLogistic},
	ActionTicketDelete:  {RoleUser, RoleEngineer, RoleLogistic},
	ActionTicketComment: {RoleUser, RoleEngineer, RoleLogistic},
	ActionTicketAttach:  {RoleUser, RoleEngineer, RoleLogistic},

	ActionTestCreate:    {RoleUser, RoleEngineer, RoleLogistic},
	ActionTestRead:      {RoleUser, RoleEngineer, RoleLogistic},
	ActionTestUpdate:    {RoleUser, RoleEngineer, RoleLogistic},
	ActionTestDelete:    {RoleUser, RoleEngineer, RoleLogistic},
	ActionTestAddResult: {RoleUser, RoleEngineer, RoleLogistic},

	ActionUserList:       {},
	ActionUserChangeRole: {},
	ActionUserDelete:     {},

	ActionNotificationRead: {RoleUser, RoleEngineer, RoleLogistic},

	ActionActivityLogRead: {},
}

// Authorize 判定角色是否允许执行动作。纯函数，无副作用。
// 未知动作一律拒绝；admin隐式允许所有已知动作。
func Authorize(role Role, action Action) bool {
	allowed, ok := policy[action]
	if !ok {
		return false
	}
	if role == RoleAdmin {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Elevated engineer/logistic/admin可越过所有权限制查看与修改他人工单和测试
func Elevated(role Role) bool {
	return role == RoleEngineer || role == RoleLogistic || role == RoleAdmin
}
