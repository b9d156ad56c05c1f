package records

const seedYAML = `
roles:
  - name: Super Admin
    permissions: []
  - name: Admin
    permissions: ["Access Admin Dashboard", "View Users"]
  - name: User
    permissions: ["View Orders"]
users:
  - id: u-admin
    role: Admin
  - id: u-trader
    role: User
apiKeys:
  - key: key-trader
    userId: u-trader
    type: user
    permissions: ["trade"]
  - key: key-plugin
    userId: u-trader
    type: plugin
    permissions: '["withdraw", "deposit"]'
`
